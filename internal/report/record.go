package report

import "strconv"

// Record is one row of a stage table: a single operation applied to a single image.
type Record struct {
	Source     string
	Operation  string
	Parameters string
	Output     string

	// Points is the detected-point count (feature stage only).
	Points int
	// Shape is the transform matrix shape (geometry stage only).
	Shape string
}

type Column int

const (
	ColSource Column = iota
	ColOperation
	ColPoints
	ColParameters
	ColShape
	ColOutput
)

// Schema describes the CSV layout of one stage table.
type Schema struct {
	// OperationHeader names the stage-specific operation column, e.g. "Filter Type".
	OperationHeader string
	Columns         []Column
}

func (s Schema) Header() []string {
	header := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		switch c {
		case ColSource:
			header[i] = "Image Source"
		case ColOperation:
			header[i] = s.OperationHeader
		case ColPoints:
			header[i] = "Detected Points Count"
		case ColParameters:
			header[i] = "Parameters"
		case ColShape:
			header[i] = "Matrix Shape"
		case ColOutput:
			header[i] = "Output Filename"
		}
	}
	return header
}

func (s Schema) Row(r Record) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		switch c {
		case ColSource:
			row[i] = r.Source
		case ColOperation:
			row[i] = r.Operation
		case ColPoints:
			row[i] = strconv.Itoa(r.Points)
		case ColParameters:
			row[i] = r.Parameters
		case ColShape:
			row[i] = r.Shape
		case ColOutput:
			row[i] = r.Output
		}
	}
	return row
}

// Table accumulates records across images for one stage. Records are append-only.
type Table struct {
	Schema  Schema
	records []Record
}

func NewTable(schema Schema) *Table {
	return &Table{Schema: schema}
}

func (t *Table) Append(records ...Record) {
	t.records = append(t.records, records...)
}

func (t *Table) Len() int {
	return len(t.records)
}

// Records returns a copy of the accumulated records.
func (t *Table) Records() []Record {
	return append([]Record(nil), t.records...)
}

// Sources lists distinct image names in first-seen order.
func (t *Table) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.records {
		if !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	return out
}
