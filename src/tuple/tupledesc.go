package tuple

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
)

var ErrEmptyDesc = errors.New("tuple descriptor must contain at least one field")

// TupleDesc describes the schema of a tuple: an ordered sequence of field
// types with optional names. Names do not participate in equality.
type TupleDesc struct {
	types []Type
	names []string
}

func NewTupleDesc(types []Type, names []string) (*TupleDesc, error) {
	if len(types) == 0 {
		return nil, ErrEmptyDesc
	}
	if names == nil {
		names = make([]string, len(types))
	}
	if len(names) != len(types) {
		return nil, fmt.Errorf(
			"field names count %d does not match types count %d",
			len(names),
			len(types),
		)
	}

	return &TupleDesc{
		types: append([]Type(nil), types...),
		names: append([]string(nil), names...),
	}, nil
}

func MustTupleDesc(types []Type, names []string) *TupleDesc {
	td, err := NewTupleDesc(types, names)
	assert.NoError(err)
	return td
}

func (td *TupleDesc) NumFields() int {
	return len(td.types)
}

func (td *TupleDesc) TypeAt(i int) Type {
	assert.Assert(i >= 0 && i < len(td.types), "field index %d out of range", i)
	return td.types[i]
}

func (td *TupleDesc) NameAt(i int) string {
	assert.Assert(i >= 0 && i < len(td.names), "field index %d out of range", i)
	return td.names[i]
}

// IndexOf returns the position of the named field, or -1.
func (td *TupleDesc) IndexOf(name string) int {
	for i, n := range td.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Size returns the serialized width of a tuple with this schema in bytes.
func (td *TupleDesc) Size() int {
	size := 0
	for _, t := range td.types {
		size += t.Size()
	}
	return size
}

// Equals compares type sequences only.
func (td *TupleDesc) Equals(other *TupleDesc) bool {
	if other == nil || len(td.types) != len(other.types) {
		return false
	}
	for i, t := range td.types {
		if t != other.types[i] {
			return false
		}
	}
	return true
}

// Merge concatenates the fields of td1 and td2, in order.
func Merge(td1, td2 *TupleDesc) *TupleDesc {
	types := make([]Type, 0, len(td1.types)+len(td2.types))
	types = append(types, td1.types...)
	types = append(types, td2.types...)

	names := make([]string, 0, len(td1.names)+len(td2.names))
	names = append(names, td1.names...)
	names = append(names, td2.names...)

	return &TupleDesc{types: types, names: names}
}

// WithNames returns a copy of td whose fields are renamed.
func (td *TupleDesc) WithNames(names []string) *TupleDesc {
	assert.Assert(
		len(names) == len(td.types),
		"renaming %d fields with %d names",
		len(td.types),
		len(names),
	)
	return &TupleDesc{
		types: append([]Type(nil), td.types...),
		names: append([]string(nil), names...),
	}
}

func (td *TupleDesc) String() string {
	parts := make([]string, len(td.types))
	for i, t := range td.types {
		parts[i] = fmt.Sprintf("%s(%s)", td.names[i], t)
	}
	return strings.Join(parts, ", ")
}
