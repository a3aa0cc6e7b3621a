package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"modelprof-mcp/internal/plan"
)

// OperationInfo is the per-operation entry of a plan document, keyed by the
// operation's name (or primary output when unnamed). A nil Cost means the
// engine produced no estimate for the operation.
type OperationInfo struct {
	Cost             *float64 `json:"cost,omitempty"`
	PreferredDevice  string   `json:"preferred_device,omitempty"`
	SupportedDevices []string `json:"supported_devices,omitempty"`
}

// Document is a captured compute plan: the nested program structure plus
// the oracle data, as serialized to disk.
type Document struct {
	Program          plan.Program             `json:"program"`
	Operations       map[string]OperationInfo `json:"operations"`
	Inputs           map[string][]int         `json:"inputs,omitempty"`
	PredictLatencyMs float64                  `json:"predict_latency_ms,omitempty"`
}

// FileEngine replays a captured plan document in place of a live model
// engine, so plan captures can be profiled offline.
type FileEngine struct {
	doc Document
}

// NewFileEngine loads a plan document from disk.
func NewFileEngine(docPath string) (*FileEngine, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan document: %w", err)
	}
	return &FileEngine{doc: doc}, nil
}

// Compile is a no-op for a replayed capture: the document already describes
// the compiled form.
func (e *FileEngine) Compile(ctx context.Context, sourcePath string) (string, error) {
	return sourcePath, nil
}

// Load implements Engine.
func (e *FileEngine) Load(ctx context.Context, compiledPath string, units ComputeUnits) (Model, error) {
	return &fileModel{doc: &e.doc}, nil
}

// GetComputePlan implements Engine. The oracles look operations up by name,
// falling back to the primary output name for unnamed operations.
func (e *FileEngine) GetComputePlan(ctx context.Context, compiledPath string, units ComputeUnits) (*ComputePlan, error) {
	if len(e.doc.Program.Functions) == 0 {
		return nil, nil
	}
	return &ComputePlan{
		Program: &e.doc.Program,
		Cost: func(op *plan.Operation) (float64, bool) {
			info, ok := e.lookup(op)
			if !ok || info.Cost == nil {
				return 0, false
			}
			return *info.Cost, true
		},
		Devices: func(op *plan.Operation) (plan.DeviceUsage, bool) {
			info, ok := e.lookup(op)
			if !ok {
				return plan.DeviceUsage{}, false
			}
			usage := plan.DeviceUsage{Preferred: plan.MapDevice(info.PreferredDevice)}
			for _, d := range info.SupportedDevices {
				usage.Supported = append(usage.Supported, plan.MapDevice(d))
			}
			return usage, true
		},
	}, nil
}

func (e *FileEngine) lookup(op *plan.Operation) (OperationInfo, bool) {
	key := op.Name
	if key == "" {
		key = op.OperatorID()
	}
	info, ok := e.doc.Operations[key]
	return info, ok
}

type fileModel struct {
	doc *Document
}

func (m *fileModel) Predict(ctx context.Context, input Features) (Features, error) {
	if m.doc.PredictLatencyMs > 0 {
		select {
		case <-time.After(time.Duration(m.doc.PredictLatencyMs * float64(time.Millisecond))):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return Features{}, nil
}

func (m *fileModel) InputShapes() map[string][]int {
	return m.doc.Inputs
}
