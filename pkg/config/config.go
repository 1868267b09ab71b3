package config

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"wbwi/pkg/comparator"
	"wbwi/pkg/merge"
)

// Config - корневая структура конфигурации приложения
// yaml и validate теги для парсинга и валидации

type Config struct {
	Logger         LoggerConfig         `yaml:"logger"`
	Batch          BatchConfig          `yaml:"batch"`
	ColumnFamilies []ColumnFamilyConfig `yaml:"column_families" validate:"dive"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type BatchConfig struct {
	ReservedBytes int  `yaml:"reserved_bytes" validate:"min=0"`
	MaxBytes      int  `yaml:"max_bytes" validate:"min=0"`
	OverwriteKey  bool `yaml:"overwrite_key"`
}

type ColumnFamilyConfig struct {
	ID            uint32 `yaml:"id"`
	Name          string `yaml:"name" validate:"required"`
	Comparator    string `yaml:"comparator" validate:"omitempty,oneof=bytewise reverse_bytewise"`
	MergeOperator string `yaml:"merge_operator" validate:"omitempty,oneof=string_append"`
	Delimiter     string `yaml:"delimiter"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Batch: BatchConfig{
			ReservedBytes: 4096,
			OverwriteKey:  true,
		},
		ColumnFamilies: []ColumnFamilyConfig{
			{
				ID:            0,
				Name:          "default",
				Comparator:    comparator.BytewiseName,
				MergeOperator: merge.StringAppendName,
				Delimiter:     ",",
			},
		},
	}
}

// Load reads a YAML config. A missing file yields Default().
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(uniqueColumnFamilies, Config{})
	return v
}

// uniqueColumnFamilies rejects column families sharing an id or a name.
func uniqueColumnFamilies(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	ids := make(map[uint32]struct{}, len(c.ColumnFamilies))
	names := make(map[string]struct{}, len(c.ColumnFamilies))
	for i, cf := range c.ColumnFamilies {
		field := fmt.Sprintf("ColumnFamilies[%d]", i)
		if _, dup := ids[cf.ID]; dup {
			sl.ReportError(cf.ID, field+".ID", "ID", "unique_id", "")
		}
		if _, dup := names[cf.Name]; dup {
			sl.ReportError(cf.Name, field+".Name", "Name", "unique_name", "")
		}
		ids[cf.ID], names[cf.Name] = struct{}{}, struct{}{}
	}
}

// Validate checks the validate tags and that column family ids and names
// are unique.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// ComparatorImpl resolves the configured comparator, bytewise when unset.
func (c ColumnFamilyConfig) ComparatorImpl() (comparator.Comparator, error) {
	if c.Comparator == "" {
		return comparator.Bytewise, nil
	}
	return comparator.ByName(c.Comparator)
}

// Operator returns the configured merge operator, nil when unset.
func (c ColumnFamilyConfig) Operator() merge.Operator {
	if c.MergeOperator == merge.StringAppendName {
		return merge.NewStringAppend(c.Delimiter)
	}
	return nil
}
