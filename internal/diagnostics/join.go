package diagnostics

import (
	"strings"

	"modelprof-mcp/internal/optable"
)

const (
	// maxLeadingNoise bounds how many leading type-declaration records are
	// skipped after the header.
	maxLeadingNoise = 5

	noiseMarker = "declaration"

	// aneBackend is the backend whose validation message is joined into the
	// table.
	aneBackend = "ane"
)

// SkipLeading drops the first record (assumed to be a header) and then up to
// maxLeadingNoise further leading records whose opcode marks them as
// type-declaration noise rather than real operations.
func SkipLeading(records []Record) []Record {
	if len(records) == 0 {
		return records
	}
	records = records[1:]
	for skipped := 0; skipped < maxLeadingNoise && len(records) > 0; skipped++ {
		if !strings.Contains(records[0].OperationKind, noiseMarker) {
			break
		}
		records = records[1:]
	}
	return records
}

// Join copies each record's ANE validation message into the table's
// validation_message column, matching records to rows strictly by position:
// record 0 to row 0, record 1 to row 1, and so on.
//
// This is a heuristic positional join, not a keyed one. If the diagnostic
// sequence and the operation table diverge in length or order the
// attributions will be wrong; callers get exactly the documented behavior,
// not a guessed correction.
func Join(table *optable.Table, records []Record) {
	records = SkipLeading(records)
	messages := make([]string, 0, table.RowCount())
	for i := 0; i < table.RowCount(); i++ {
		if i < len(records) {
			messages = append(messages, records[i].ValidationMessages[aneBackend])
		} else {
			messages = append(messages, "")
		}
	}
	table.AttachValidationMessages(messages)
}
