package stream

import (
	"iter"

	"counselweb/internal/models"
)

// Accumulator folds streamed text fragments into a single growing assistant message and
// owns the client-visible "generating" state for that stream.
type Accumulator struct {
	generating bool
}

// Generating reports whether a stream is currently being consumed. The flag is set
// before the first fragment is requested and cleared on every settle path: completion,
// error, or cancellation.
func (a *Accumulator) Generating() bool {
	return a.generating
}

// Run appends each fragment to target.Content in arrival order, invoking onFragment
// after every append. If the sequence fails mid-stream, the content applied so far is
// retained and the error is returned for the caller to surface.
func (a *Accumulator) Run(
	fragments iter.Seq2[string, error],
	target *models.Message,
	onFragment func(models.Message),
) error {
	a.generating = true
	defer func() { a.generating = false }()

	for fragment, err := range fragments {
		if err != nil {
			return err
		}
		if fragment == "" {
			continue
		}
		target.Content += fragment
		if onFragment != nil {
			onFragment(*target)
		}
	}
	return nil
}
