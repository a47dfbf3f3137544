package engine

import "fmt"

// ChangeReason identifies what kind of document change was observed.
type ChangeReason int

const (
	// ChangeMutation is a structural or text mutation of the document.
	ChangeMutation ChangeReason = iota + 1
	// ChangeResize is a size or layout change.
	ChangeResize
	// ChangePoll is the coarse timer-based fallback.
	ChangePoll
	// ChangeManual is a pass requested directly by the host.
	ChangeManual
)

// String implements fmt.Stringer.
func (r ChangeReason) String() string {
	switch r {
	case ChangeMutation:
		return "mutation"
	case ChangeResize:
		return "resize"
	case ChangePoll:
		return "poll"
	case ChangeManual:
		return "manual"
	default:
		return fmt.Sprintf("change(%d)", int(r))
	}
}

// Message is an input to the Reconciler's Run loop.
//
// The set of messages is closed: only the types in this file implement it.
// Run switches over them and treats anything else as a programming error.
type Message interface {
	isMessage()
}

// SetConfigsMsg replaces the Config set (see Reconciler.SetConfigs).
// If Done is non-nil it receives the result.
type SetConfigsMsg struct {
	Configs []Config
	Done    chan<- error
}

// ChangeMsg requests a reconciliation pass.
type ChangeMsg struct {
	Reason ChangeReason
}

// DetachMsg releases everything and stops the Run loop.
type DetachMsg struct{}

func (SetConfigsMsg) isMessage() {}
func (ChangeMsg) isMessage()     {}
func (DetachMsg) isMessage()     {}
