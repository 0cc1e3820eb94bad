package tuple

import "fmt"

// StringMaxLen is the number of content bytes a STRING field occupies on
// disk. The encoded width adds a 4-byte length prefix on top of it.
const StringMaxLen = 128

type Type uint8

const (
	IntType Type = iota
	StringType
)

// Size returns the fixed on-disk width of a field of this type in bytes.
func (t Type) Size() int {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringMaxLen
	}
	panic(fmt.Sprintf("unknown field type %d", t))
}

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// Op is a comparison operator applicable to a pair of fields.
type Op uint8

const (
	OpEquals Op = iota
	OpNotEquals
	OpLessThan
	OpLessThanOrEq
	OpGreaterThan
	OpGreaterThanOrEq
	OpLike
)

func (op Op) String() string {
	switch op {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "<>"
	case OpLessThan:
		return "<"
	case OpLessThanOrEq:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEq:
		return ">="
	case OpLike:
		return "LIKE"
	}
	return "?"
}
