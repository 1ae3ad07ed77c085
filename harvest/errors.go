package harvest

import "errors"

var (
	// ErrAcquisitionTimeout means every strategy exhausted its window
	// without producing usable text.
	ErrAcquisitionTimeout = errors.New("harvest: acquisition timeout")

	// ErrNoCandidate means a strategy finished without a candidate; the
	// orchestrator moves to the next one.
	ErrNoCandidate = errors.New("harvest: no candidate")
)
