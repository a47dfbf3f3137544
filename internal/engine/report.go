package engine

// PassReport summarizes one reconciliation pass.
type PassReport struct {
	// Seq is the pass number from the Reconciler's clock.
	Seq int64

	// Reason is the change that triggered the pass.
	Reason ChangeReason

	// Fingerprint is the BLAKE3 digest of the rebuilt index text.
	Fingerprint string

	// Configs is the number of Configs reconciled.
	Configs int

	// Injected, Released and Kept count artifact operations.
	Injected int
	Released int
	Kept     int

	// Failed counts spans whose inject failed (retried next pass).
	Failed int

	// Unanchored counts Configs with no usable match.
	Unanchored int

	// Errors holds every isolated failure of the pass.
	Errors []error
}

// Changed reports whether the pass injected or released anything.
func (r PassReport) Changed() bool {
	return r.Injected > 0 || r.Released > 0
}

// PassObserver is notified after every completed pass.
type PassObserver interface {
	PassCompleted(PassReport)
}

// PassObserverFunc adapts a function to PassObserver.
type PassObserverFunc func(PassReport)

// PassCompleted implements PassObserver.
func (f PassObserverFunc) PassCompleted(r PassReport) {
	f(r)
}
