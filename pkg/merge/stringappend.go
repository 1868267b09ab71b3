package merge

import "bytes"

const StringAppendName = "string_append"

// StringAppend joins the existing value and the operands with Delimiter.
type StringAppend struct {
	Delimiter []byte
}

func NewStringAppend(delim string) *StringAppend {
	return &StringAppend{Delimiter: []byte(delim)}
}

func (s *StringAppend) Name() string { return StringAppendName }

func (s *StringAppend) FullMerge(_, existing []byte, hasExisting bool, operands [][]byte) ([]byte, error) {
	parts := operands
	if hasExisting {
		parts = append([][]byte{existing}, operands...)
	}
	return bytes.Join(parts, s.Delimiter), nil
}
