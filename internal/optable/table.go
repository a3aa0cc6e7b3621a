// Package optable holds the flattened profiling table: one row per costed
// operation, fixed column schema, queryable by column predicate.
package optable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"modelprof-mcp/internal/plan"
)

// Column names, in schema order.
const (
	ColOpNumber          = "op_number"
	ColOperatorID        = "operator_id"
	ColOperatorName      = "operator_name"
	ColCost              = "cost"
	ColPreferredDevice   = "preferred_device"
	ColSupportedDevices  = "supported_devices"
	ColStartTime         = "start_time"
	ColEndTime           = "end_time"
	ColOpTime            = "op_time"
	ColValidationMessage = "validation_message"
)

// MinimalSchema is the column set produced without full-profile mode.
var MinimalSchema = []string{
	ColOpNumber, ColOperatorID, ColOperatorName, ColCost,
	ColPreferredDevice, ColSupportedDevices,
}

// FullSchema adds the synthesized timeline columns.
var FullSchema = []string{
	ColOpNumber, ColOperatorID, ColOperatorName, ColCost,
	ColPreferredDevice, ColSupportedDevices,
	ColStartTime, ColEndTime, ColOpTime,
}

// StructuralError reports malformed table input, naming the field at fault.
type StructuralError struct {
	Field  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("malformed operation table: field %q: %s", e.Field, e.Reason)
}

// Row is one operation of the profiling table.
type Row struct {
	OpNumber          int
	OperatorID        string
	OperatorName      string
	Cost              float64
	PreferredDevice   string
	SupportedDevices  string
	StartTime         float64
	EndTime           float64
	OpTime            float64
	ValidationMessage string
}

// Table is an ordered, fixed-schema collection of rows.
type Table struct {
	columns []string
	rows    []Row
}

// New builds a table from flattened records. The schema is FullSchema when
// the records carry timeline windows, MinimalSchema otherwise. The
// validation_message column is never present at construction; it is attached
// later by the diagnostics join.
func New(records []plan.OperationRecord) *Table {
	columns := MinimalSchema
	if len(records) > 0 && records[0].HasTiming {
		columns = FullSchema
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		devices := make([]string, 0, len(rec.SupportedDevices))
		for _, d := range rec.SupportedDevices {
			devices = append(devices, string(d))
		}
		rows = append(rows, Row{
			OpNumber:         rec.OpNumber,
			OperatorID:       rec.OperatorID,
			OperatorName:     rec.OperatorName,
			Cost:             rec.Cost,
			PreferredDevice:  string(rec.PreferredDevice),
			SupportedDevices: strings.Join(devices, ","),
			StartTime:        rec.StartTime,
			EndTime:          rec.EndTime,
			OpTime:           rec.OpTime,
		})
	}
	return &Table{columns: columns, rows: rows}
}

// Columns returns the schema, in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Rows returns the rows in op-number order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

func (t *Table) hasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Project returns a table restricted to the named columns. Requesting a
// column absent from the current schema is an error. Projected columns keep
// the table's schema order regardless of the order requested.
func (t *Table) Project(columns []string) (*Table, error) {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !t.hasColumn(c) {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		want[c] = true
	}
	kept := make([]string, 0, len(columns))
	for _, c := range t.columns {
		if want[c] {
			kept = append(kept, c)
		}
	}
	rows := make([]Row, len(t.rows))
	copy(rows, t.rows)
	return &Table{columns: kept, rows: rows}, nil
}

// value returns the row's value for a column, stringified for predicate
// matching.
func (r *Row) value(column string) string {
	switch column {
	case ColOpNumber:
		return strconv.Itoa(r.OpNumber)
	case ColOperatorID:
		return r.OperatorID
	case ColOperatorName:
		return r.OperatorName
	case ColCost:
		return strconv.FormatFloat(r.Cost, 'g', -1, 64)
	case ColPreferredDevice:
		return r.PreferredDevice
	case ColSupportedDevices:
		return r.SupportedDevices
	case ColStartTime:
		return strconv.FormatFloat(r.StartTime, 'g', -1, 64)
	case ColEndTime:
		return strconv.FormatFloat(r.EndTime, 'g', -1, 64)
	case ColOpTime:
		return strconv.FormatFloat(r.OpTime, 'g', -1, 64)
	case ColValidationMessage:
		return r.ValidationMessage
	default:
		return ""
	}
}

// CountWhere counts rows whose stringified value for the column satisfies
// the predicate.
func (t *Table) CountWhere(column string, pred func(value string) bool) int {
	n := 0
	for i := range t.rows {
		if pred(t.rows[i].value(column)) {
			n++
		}
	}
	return n
}

// AttachValidationMessages adds the validation_message column, assigning
// messages to rows strictly by position. Rows beyond the message list get an
// empty message.
func (t *Table) AttachValidationMessages(messages []string) {
	if !t.hasColumn(ColValidationMessage) {
		t.columns = append(t.columns, ColValidationMessage)
	}
	for i := range t.rows {
		if i < len(messages) {
			t.rows[i].ValidationMessage = messages[i]
		} else {
			t.rows[i].ValidationMessage = ""
		}
	}
}

// Serialize renders the table as a pretty-printed JSON array of objects,
// one per row, with key order following the schema order.
func (t *Table) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i := range t.rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, col := range t.columns {
			if j > 0 {
				buf.WriteString(",")
			}
			buf.WriteString("\n    ")
			key, _ := json.Marshal(col)
			buf.Write(key)
			buf.WriteString(": ")
			val, err := t.rows[i].jsonValue(col)
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
		buf.WriteString("\n  }")
	}
	buf.WriteString("\n]")
	return buf.Bytes(), nil
}

func (r *Row) jsonValue(column string) ([]byte, error) {
	switch column {
	case ColOpNumber:
		return json.Marshal(r.OpNumber)
	case ColCost:
		return json.Marshal(r.Cost)
	case ColStartTime:
		return json.Marshal(r.StartTime)
	case ColEndTime:
		return json.Marshal(r.EndTime)
	case ColOpTime:
		return json.Marshal(r.OpTime)
	default:
		return json.Marshal(r.value(column))
	}
}
