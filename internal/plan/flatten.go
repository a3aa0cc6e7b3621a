package plan

// Flatten walks the program depth-first in pre-order (functions, then each
// block's operations in declared order, then each operation's nested blocks)
// and emits one OperationRecord per operation that has a cost estimate.
//
// A single counter is shared across the entire traversal, so op numbers are
// globally unique even for operations nested inside control-flow bodies. The
// counter advances only when the cost oracle yields an estimate: operations
// without a cost emit no row and leave no gap, keeping the emitted numbers
// dense (1..N).
func Flatten(p *Program, cost CostOracle, devices DeviceOracle) []OperationRecord {
	f := flattener{cost: cost, devices: devices}
	for i := range p.Functions {
		f.block(&p.Functions[i].Block)
	}
	return f.records
}

type flattener struct {
	cost    CostOracle
	devices DeviceOracle
	counter int
	records []OperationRecord
}

func (f *flattener) block(b *Block) {
	for i := range b.Operations {
		f.operation(&b.Operations[i])
	}
}

func (f *flattener) operation(op *Operation) {
	if c, ok := f.cost(op); ok {
		f.counter++
		rec := OperationRecord{
			OpNumber:     f.counter,
			OperatorID:   op.OperatorID(),
			OperatorName: op.Type,
			Cost:         c,
		}
		if usage, ok := f.devices(op); ok {
			rec.PreferredDevice = usage.Preferred
			rec.SupportedDevices = usage.Supported
		}
		f.records = append(f.records, rec)
	}

	// A parent's row precedes its children's; children of different parents
	// interleave chronologically per the traversal.
	for i := range op.Blocks {
		f.block(&op.Blocks[i])
	}
}
