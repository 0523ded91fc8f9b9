package domain

import "errors"

var (
	// ErrEncoding signals that the query could not be vectorized.
	ErrEncoding = errors.New("query encoding failed")
	// ErrRetrieval signals that the search index is unreachable or rejected the query.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrUnsupportedProvider signals an unrecognized generation provider.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrGeneration signals a generation provider failure.
	ErrGeneration = errors.New("generation failed")
	// ErrVectorDimMismatch signals a query vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrConversationNotFound signals feedback for an unknown conversation.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrInvalidFeedback signals a feedback score outside {+1, -1}.
	ErrInvalidFeedback = errors.New("invalid feedback score")
)
