package domain

// LifecycleState is the single source of truth for what the
// presentation layer renders. Exactly one state is active at a time.
type LifecycleState int

const (
	// StateIdle is the initial state: no query, no results.
	StateIdle LifecycleState = iota

	// StateSearching means a query is in flight.
	StateSearching

	// StateResults means a result set is displayed.
	StateResults

	// StateDetail means a single result is selected for inspection.
	StateDetail
)

// String returns the string representation of the state.
func (s LifecycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateResults:
		return "results"
	case StateDetail:
		return "detail"
	default:
		return "unknown"
	}
}
