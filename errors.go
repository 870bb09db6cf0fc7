package sensimap

import "errors"

var (
	// ErrInvalidConfiguration is returned before any forward pass when the
	// perturbation parameters do not fit the image.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrMalformedScores is returned when a Scorer output cannot be indexed
	// by the target class.
	ErrMalformedScores = errors.New("malformed scores")
	// ErrUnsupportedModel is returned when no target layer is registered
	// for a model kind.
	ErrUnsupportedModel = errors.New("unsupported model kind")
)
