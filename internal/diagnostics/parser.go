// Package diagnostics parses the execution engine's free-text
// backend-selection log and joins its validation messages into the
// operation table.
package diagnostics

import (
	"regexp"
	"strconv"
	"strings"
)

// The log is a sequence of ';'-terminated statements. A statement describes
// one operation when it carries the "op =" assignment marker; everything
// else (banners, blank runs) is discarded. Field extraction is independent
// and best-effort per field: a pattern that does not match falls back to a
// documented default instead of invalidating the record.
var (
	opPattern       = regexp.MustCompile(`op\s*=\s*([A-Za-z0-9_.:]+)`)
	runtimesPattern = regexp.MustCompile(`estimated_runtimes\s*\{([^}]*)\}`)
	runtimePair     = regexp.MustCompile(`([A-Za-z0-9_]+)\s*->\s*([0-9.eE+\-]+)`)
	backendPattern  = regexp.MustCompile(`selected_backend\s*=\s*([A-Za-z0-9_]+)`)
	namePattern     = regexp.MustCompile(`name\s*=\s*"((?:[^"\\]|\\.)*)"`)
	messagesPattern = regexp.MustCompile(`validation_messages\s*\{([^}]*)\}`)
	messagePair     = regexp.MustCompile(`([A-Za-z0-9_]+)\s*->\s*"((?:[^"\\]|\\.)*)"`)
)

// Parse splits raw diagnostic text into records, one per operation
// statement.
func Parse(raw string) []Record {
	var records []Record
	for _, segment := range strings.Split(raw, ";") {
		if !strings.Contains(segment, "op =") && !strings.Contains(segment, "op=") {
			continue
		}
		records = append(records, parseSegment(segment))
	}
	return records
}

func parseSegment(segment string) Record {
	rec := Record{
		OperationKind:      NotFound,
		Runtimes:           map[string]float64{},
		SelectedBackend:    NotFound,
		ValidationMessages: map[string]string{},
	}

	if m := opPattern.FindStringSubmatch(segment); m != nil {
		rec.OperationKind = m[1]
	}

	if m := runtimesPattern.FindStringSubmatch(segment); m != nil {
		for _, pair := range runtimePair.FindAllStringSubmatch(m[1], -1) {
			v, err := strconv.ParseFloat(pair[2], 64)
			if err != nil {
				continue
			}
			rec.Runtimes[pair[1]] = v
		}
	}

	if m := backendPattern.FindStringSubmatch(segment); m != nil {
		rec.SelectedBackend = m[1]
	}

	if m := namePattern.FindStringSubmatch(segment); m != nil {
		rec.Name = unescape(m[1])
	}

	if m := messagesPattern.FindStringSubmatch(segment); m != nil {
		for _, pair := range messagePair.FindAllStringSubmatch(m[1], -1) {
			rec.ValidationMessages[pair[1]] = unescape(pair[2])
		}
	}

	return rec
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}
