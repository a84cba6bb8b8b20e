package vectorstore

import "errors"

var (
	// ErrLengthMismatch signals that documents, embeddings and metadatas are not index-aligned.
	ErrLengthMismatch = errors.New("vectorstore: length mismatch")
	// ErrDimensionMismatch signals an embedding whose dimension differs from the collection's.
	ErrDimensionMismatch = errors.New("vectorstore: dimension mismatch")
	// ErrInvalidCollection signals an empty collection id.
	ErrInvalidCollection = errors.New("vectorstore: invalid collection id")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("vectorstore: collection not found")
)
