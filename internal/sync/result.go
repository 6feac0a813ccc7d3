package sync

// Outcome tags a sync Result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeSuccess {
		return "success"
	}
	return "failed"
}

// Result is the outcome of SyncWithRetry.
//
// On success Message describes the pass. On failure Err holds the last
// attempt's error and FallbackMessage tells the caller to present cached
// data instead.
type Result struct {
	Outcome         Outcome
	Message         string
	Boards          int
	Err             error
	FallbackMessage string
}

// Succeeded reports whether the pass succeeded.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
