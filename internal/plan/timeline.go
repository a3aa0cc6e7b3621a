package plan

// AllocateTimeline distributes a single measured aggregate duration across
// the records in traversal order, proportionally to each record's cost
// weight. Windows are contiguous and non-overlapping: each record starts
// where the previous one ended.
//
// This is a simulation, not a measurement. It is only meaningful when the
// records are in the exact order Flatten emitted them. With an aggregate of
// zero every window collapses to zero width at cursor 0.
func AllocateTimeline(records []OperationRecord, aggregateMs float64) {
	cursor := 0.0
	for i := range records {
		end := cursor + aggregateMs*records[i].Cost
		records[i].HasTiming = true
		records[i].StartTime = cursor
		records[i].EndTime = end
		records[i].OpTime = end - cursor
		cursor = end
	}
}
