package tuple

import (
	"fmt"
	"io"
	"strings"

	"github.com/Blackdeer1524/HeapDB/src/pkg/assert"
	"github.com/Blackdeer1524/HeapDB/src/pkg/common"
	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
)

// Tuple is a fixed array of fields matching a TupleDesc. A tuple placed on a
// page additionally carries the record id of its slot.
type Tuple struct {
	desc   *TupleDesc
	fields []Field
	rid    optional.Optional[common.RecordID]
}

func New(desc *TupleDesc) *Tuple {
	return &Tuple{
		desc:   desc,
		fields: make([]Field, desc.NumFields()),
	}
}

func (t *Tuple) Desc() *TupleDesc {
	return t.desc
}

func (t *Tuple) SetField(i int, f Field) {
	assert.Assert(i >= 0 && i < len(t.fields), "field index %d out of range", i)
	assert.Assert(
		f.Type() == t.desc.TypeAt(i),
		"field type %s does not match schema type %s",
		f.Type(),
		t.desc.TypeAt(i),
	)
	t.fields[i] = f
}

func (t *Tuple) Field(i int) Field {
	assert.Assert(i >= 0 && i < len(t.fields), "field index %d out of range", i)
	return t.fields[i]
}

func (t *Tuple) RecordID() optional.Optional[common.RecordID] {
	return t.rid
}

func (t *Tuple) SetRecordID(rid common.RecordID) {
	t.rid = optional.Some(rid)
}

func (t *Tuple) ClearRecordID() {
	t.rid.Clear()
}

// Serialize writes all fields back to back in schema order. The result is
// exactly t.Desc().Size() bytes.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, f := range t.fields {
		assert.Assert(f != nil, "serializing a tuple with unset field %d", i)
		if err := f.Serialize(w); err != nil {
			return fmt.Errorf("serializing field %d: %w", i, err)
		}
	}
	return nil
}

// ReadTuple decodes one tuple with the given schema from r.
func ReadTuple(r io.Reader, desc *TupleDesc) (*Tuple, error) {
	t := New(desc)
	for i := 0; i < desc.NumFields(); i++ {
		f, err := ReadField(r, desc.TypeAt(i))
		if err != nil {
			return nil, fmt.Errorf("reading field %d: %w", i, err)
		}
		t.fields[i] = f
	}
	return t, nil
}

// Combine builds the concatenation of two tuples under a merged schema.
func Combine(t1, t2 *Tuple) *Tuple {
	merged := Merge(t1.desc, t2.desc)
	out := New(merged)
	n1 := t1.desc.NumFields()
	for i := 0; i < n1; i++ {
		out.fields[i] = t1.fields[i]
	}
	for i := 0; i < t2.desc.NumFields(); i++ {
		out.fields[n1+i] = t2.fields[i]
	}
	return out
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		if f == nil {
			parts[i] = "<unset>"
			continue
		}
		parts[i] = f.String()
	}
	return strings.Join(parts, "\t")
}
