package harness

// TraceEvent records one reconciliation pass.
type TraceEvent struct {
	Seq        int64            `json:"seq"`
	Reason     string           `json:"reason"`
	Injected   int              `json:"injected"`
	Released   int              `json:"released"`
	Kept       int              `json:"kept"`
	Failed     int              `json:"failed"`
	Unanchored int              `json:"unanchored"`
	Anchors    map[string][]int `json:"anchors"` // config id -> artifact start offsets
}

// counts exposes the numeric fields by their scenario key.
func (e TraceEvent) counts() map[string]int {
	return map[string]int{
		"injected":   e.Injected,
		"released":   e.Released,
		"kept":       e.Kept,
		"failed":     e.Failed,
		"unanchored": e.Unanchored,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step expectation and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per pass, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Tagged is the final element tagging, per config id.
	Tagged map[string][]string `json:"tagged,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Tagged: make(map[string][]string),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddPass appends a pass to the trace.
func (r *Result) AddPass(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// LastPass returns the most recent pass, if any.
func (r *Result) LastPass() (TraceEvent, bool) {
	if len(r.Trace) == 0 {
		return TraceEvent{}, false
	}
	return r.Trace[len(r.Trace)-1], true
}
