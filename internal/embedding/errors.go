package embedding

import "errors"

var (
	// ErrUnavailable means the embedding provider or vector index is not
	// configured. Writes surface this as a deterministic failure; search
	// degrades to an empty result instead.
	ErrUnavailable = errors.New("embedding services unavailable")

	// ErrNoContent means neither language has a complete title/solution pair.
	ErrNoContent = errors.New("no content to process")
)
