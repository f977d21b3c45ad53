package index

import "errors"

var (
	ErrEmpty             = errors.New("index: no chunks to index")
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
	ErrLengthMismatch    = errors.New("index: chunks and vectors length mismatch")
	ErrInvalidK          = errors.New("index: k must be at least 1")
	ErrNotFound          = errors.New("index: not found on disk")
	ErrCorrupt           = errors.New("index: persisted artifacts disagree")
)
