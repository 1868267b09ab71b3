package types

// Key is an immutable byte slice type alias used for clarity.
type Key = []byte

// Value is an immutable byte slice type alias used for clarity.
type Value = []byte

// ColumnFamilyID identifies an independent keyspace. Zero is the default column family.
type ColumnFamilyID = uint32

// DefaultColumnFamily is the id written without a column family qualifier.
const DefaultColumnFamily ColumnFamilyID = 0

// SequenceNumber is assigned to a batch when the base store commits it.
type SequenceNumber uint64
