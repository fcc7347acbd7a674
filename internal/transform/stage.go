package transform

import (
	"context"
	"strconv"

	"kbcomponent/internal/table"
)

type Stage interface {
	// Schema maps the incoming header to the header of Apply's output.
	Schema(in table.Header) table.Header
	Apply(ctx context.Context, r table.Record) (table.Record, error)
}

// RowNumberField is the column RowNumber appends.
const RowNumberField = "row_number"

// RowNumber appends a zero-based, gap-free sequence number to every row in
// the order rows are applied. Not safe for concurrent use.
type RowNumber struct {
	out  table.Header
	next int
}

func NewRowNumber() *RowNumber { return &RowNumber{} }

func (s *RowNumber) Schema(in table.Header) table.Header {
	s.out = in.Append(RowNumberField)
	return s.out
}

func (s *RowNumber) Apply(_ context.Context, r table.Record) (table.Record, error) {
	if s.out.Len() == 0 {
		s.Schema(r.Header())
	}
	out, err := r.Extend(s.out, strconv.Itoa(s.next))
	if err != nil {
		return table.Record{}, err
	}
	s.next++
	return out, nil
}
