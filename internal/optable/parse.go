package optable

import (
	"encoding/json"
	"fmt"
	"math"
)

// Parse rebuilds a table from its serialized JSON form. Input produced by
// Serialize round-trips to an identical sequence of rows. Malformed input
// fails with a StructuralError naming the offending field; no partial table
// is returned.
func Parse(data []byte) (*Table, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("operation table is not a JSON array of objects: %w", err)
	}

	t := &Table{columns: MinimalSchema}
	if len(raw) == 0 {
		return t, nil
	}
	if _, ok := raw[0][ColStartTime]; ok {
		t.columns = FullSchema
	}
	if _, ok := raw[0][ColValidationMessage]; ok {
		t.columns = append(append([]string{}, t.columns...), ColValidationMessage)
	}

	for _, obj := range raw {
		var row Row
		for _, col := range t.columns {
			field, ok := obj[col]
			if !ok {
				return nil, &StructuralError{Field: col, Reason: "missing"}
			}
			if err := row.setField(col, field); err != nil {
				return nil, err
			}
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (r *Row) setField(column string, raw json.RawMessage) error {
	switch column {
	case ColOpNumber:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil || v != math.Trunc(v) {
			return &StructuralError{Field: column, Reason: "not an integer"}
		}
		r.OpNumber = int(v)
	case ColCost, ColStartTime, ColEndTime, ColOpTime:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return &StructuralError{Field: column, Reason: "not a number"}
		}
		switch column {
		case ColCost:
			r.Cost = v
		case ColStartTime:
			r.StartTime = v
		case ColEndTime:
			r.EndTime = v
		case ColOpTime:
			r.OpTime = v
		}
	default:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return &StructuralError{Field: column, Reason: "not a string"}
		}
		switch column {
		case ColOperatorID:
			r.OperatorID = v
		case ColOperatorName:
			r.OperatorName = v
		case ColPreferredDevice:
			r.PreferredDevice = v
		case ColSupportedDevices:
			r.SupportedDevices = v
		case ColValidationMessage:
			r.ValidationMessage = v
		}
	}
	return nil
}
