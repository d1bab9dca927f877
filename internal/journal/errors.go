package journal

import "errors"

// ErrorClassifier allows errors to declare their classification for status
// mapping. Errors that implement this interface can influence whether a
// failed batch lands in StatusFailed (retry-able) or StatusReview (needs
// manual intervention).
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds that map to StatusReview: "validation", "configuration",
	// "lookup". All other kinds map to StatusFailed.
	ErrorKind() string
}

// FailureStatus maps an upload error to the journal status the orchestrator
// should persist after a batch fails.
func FailureStatus(err error) Status {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "validation", "configuration", "lookup":
			return StatusReview
		}
	}
	return StatusFailed
}
