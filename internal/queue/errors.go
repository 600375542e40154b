package queue

import (
	"context"
	"errors"
)

// ErrorClassifier allows errors to declare their classification. The kind is
// stored on the job next to the error message.
type ErrorClassifier interface {
	ErrorKind() string
}

// Error kinds recorded on failed jobs.
const (
	KindExtraction      = "extraction"
	KindModelLoad       = "model_load"
	KindRecognition     = "recognition"
	KindOutputCollision = "output_collision"
	KindIO              = "io"
	KindCancelled       = "cancelled"
	KindInternal        = "internal"
)

// KindOf returns the classification of err, or KindInternal when nothing in
// the chain declares one. A nil error has no kind.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		if kind := classifier.ErrorKind(); kind != "" {
			return kind
		}
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}
