package vector

import (
	"context"
	"errors"
)

// ErrShapeMismatch is returned when a vector's dimension does not match the
// index configuration.
var ErrShapeMismatch = errors.New("vector dimension does not match index")

// Document is one chunk to index. Metadata values must be string or int64.
type Document struct {
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// Hit is one query result. Distance is cosine distance, smaller is closer.
type Hit struct {
	Text     string
	Distance float64
	Metadata map[string]any
}

// Index stores embedded chunks and answers filtered nearest-neighbor
// queries. Results come back ordered by ascending distance.
type Index interface {
	// Insert writes docs and returns the generated point ids in input
	// order.
	Insert(ctx context.Context, docs []Document) ([]string, error)
	Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Hit, error)
	// Delete removes points by id. Unknown ids are skipped.
	Delete(ctx context.Context, ids []string) error
	// DeleteByFilter removes all matching points. It reports whether the
	// delete request was applied; deleting nothing is not an error.
	DeleteByFilter(ctx context.Context, filter *Filter) (bool, error)
	Count(ctx context.Context, filter *Filter) (uint64, error)
}
