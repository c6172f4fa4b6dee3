// Package timeout defines centralized timeout constants for matcher
// operations. A scorer that exceeds its timeout degrades to its fallback
// value rather than failing the matching request.
package timeout

import "time"

const (
	// EmbeddingTimeout is the timeout for one external embedding call.
	EmbeddingTimeout = 10 * time.Second

	// CollaborativeTimeout is the timeout for one pairwise preference
	// model call.
	CollaborativeTimeout = 5 * time.Second

	// RerankTimeout is the timeout for the batched reranking call. The
	// reasoning service is the slowest signal source, so it gets the
	// largest budget.
	RerankTimeout = 20 * time.Second

	// RequestTimeout bounds a whole matching request end to end.
	RequestTimeout = 30 * time.Second

	// MaxEmbeddingConcurrency limits parallel candidate embedding
	// resolution to avoid overwhelming the upstream API.
	MaxEmbeddingConcurrency = 3

	// MaxCollaborativeConcurrency limits parallel preference model calls
	// within one matching request.
	MaxCollaborativeConcurrency = 4
)
