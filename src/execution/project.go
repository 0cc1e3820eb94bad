package execution

import (
	"fmt"

	"github.com/Blackdeer1524/HeapDB/src/pkg/optional"
	"github.com/Blackdeer1524/HeapDB/src/tuple"
)

// Project emits the indicated subfields of each child tuple, in order.
type Project struct {
	child  OpIterator
	fields []int
	desc   *tuple.TupleDesc
	open   bool
}

func NewProject(child OpIterator, fields []int) (*Project, error) {
	childDesc := child.TupleDesc()

	types := make([]tuple.Type, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		if f < 0 || f >= childDesc.NumFields() {
			return nil, fmt.Errorf("%w: %d", ErrBadFieldIdx, f)
		}
		types[i] = childDesc.TypeAt(f)
		names[i] = childDesc.NameAt(f)
	}

	desc, err := tuple.NewTupleDesc(types, names)
	if err != nil {
		return nil, err
	}

	return &Project{
		child:  child,
		fields: append([]int(nil), fields...),
		desc:   desc,
	}, nil
}

func (p *Project) Open() error {
	if err := p.child.Open(); err != nil {
		return err
	}
	p.open = true
	return nil
}

func (p *Project) Next() (optional.Optional[*tuple.Tuple], error) {
	if !p.open {
		return noTuple(), ErrNotOpen
	}

	next, err := p.child.Next()
	if err != nil || next.IsNone() {
		return next, err
	}

	in := next.Unwrap()
	out := tuple.New(p.desc)
	for i, f := range p.fields {
		out.SetField(i, in.Field(f))
	}
	return optional.Some(out), nil
}

func (p *Project) Rewind() error {
	if !p.open {
		return ErrNotOpen
	}
	return p.child.Rewind()
}

func (p *Project) Close() {
	p.open = false
	p.child.Close()
}

func (p *Project) TupleDesc() *tuple.TupleDesc {
	return p.desc
}
