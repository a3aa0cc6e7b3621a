package diagnostics

// NotFound is the fallback value for single-valued fields whose extraction
// pattern did not match.
const NotFound = "Not found"

// Record is one parsed segment of the backend-selection diagnostic log.
type Record struct {
	OperationKind      string
	Runtimes           map[string]float64
	SelectedBackend    string
	Name               string // empty when the segment carries no name
	ValidationMessages map[string]string
}
