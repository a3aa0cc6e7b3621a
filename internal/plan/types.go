package plan

// Device identifies an execution target for an operation.
type Device string

const (
	DeviceCPU     Device = "CPU"
	DeviceGPU     Device = "GPU"
	DeviceANE     Device = "ANE"
	DeviceUnknown Device = ""
)

// MapDevice normalizes a device tag reported by the model engine into the
// closed set above. Unrecognized tags map to DeviceUnknown.
func MapDevice(tag string) Device {
	switch tag {
	case "CPU", "cpu":
		return DeviceCPU
	case "GPU", "gpu":
		return DeviceGPU
	case "ANE", "ane", "NeuralEngine":
		return DeviceANE
	default:
		return DeviceUnknown
	}
}

// Program is the root of a compute plan: the cost/device-assignment
// analysis of a compiled model, structured as nested functions, blocks and
// operations.
type Program struct {
	Functions []Function `json:"functions"`
}

// Function is a named entry point holding one body block.
type Function struct {
	Name  string `json:"name"`
	Block Block  `json:"block"`
}

// Block is an ordered sequence of operations.
type Block struct {
	Operations []Operation `json:"operations"`
}

// Operation is a single unit of work. Control-flow operations own nested
// blocks (their bodies), which are flattened depth-first after the
// operation itself.
type Operation struct {
	Name    string   `json:"name,omitempty"`
	Type    string   `json:"operator_name"`
	Outputs []string `json:"outputs,omitempty"`
	Blocks  []Block  `json:"blocks,omitempty"`
}

// OperatorID returns the identifier for the operation, derived from its
// primary output name.
func (op *Operation) OperatorID() string {
	if len(op.Outputs) == 0 || op.Outputs[0] == "" {
		return "Unknown"
	}
	return op.Outputs[0]
}

// DeviceUsage describes where an operation prefers to run and where it is
// supported, in the order the engine reported.
type DeviceUsage struct {
	Preferred Device
	Supported []Device
}

// CostOracle reports the fraction of total estimated model cost attributed
// to an operation, in [0,1]. The second return is false when the engine has
// no estimate for the operation.
type CostOracle func(op *Operation) (float64, bool)

// DeviceOracle reports the device usage for an operation. The second return
// is false when the engine has no mapping for the operation.
type DeviceOracle func(op *Operation) (DeviceUsage, bool)

// OperationRecord is one flattened row of the profiling table, before any
// diagnostics join.
type OperationRecord struct {
	OpNumber         int
	OperatorID       string
	OperatorName     string
	Cost             float64
	PreferredDevice  Device
	SupportedDevices []Device

	// Timeline fields, populated only by AllocateTimeline.
	HasTiming bool
	StartTime float64
	EndTime   float64
	OpTime    float64
}
