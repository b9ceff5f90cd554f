package pipeline

// State tracks a stage through its lifecycle. Transitions are monotonic:
// Pending -> Running -> Done/Failed, or Pending -> Skipped when an earlier
// stage fails.
type State int

const (
	Pending State = iota
	Running
	Done
	Failed
	Skipped
)

// String implements fmt.Stringer for logs and the status endpoint.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
