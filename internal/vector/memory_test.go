package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	idx := NewMemoryIndex(3)
	_, err := idx.Insert(context.Background(), []Document{
		{
			Text:   "alpha",
			Vector: []float32{1, 0, 0},
			Metadata: map[string]any{
				"source_type":     "conversation",
				"conversation_id": int64(1),
				"file_id":         int64(10),
			},
		},
		{
			Text:   "beta",
			Vector: []float32{0, 1, 0},
			Metadata: map[string]any{
				"source_type":       "knowledge_base",
				"knowledge_base_id": int64(2),
				"file_id":           int64(20),
			},
		},
		{
			Text:   "gamma",
			Vector: []float32{0.9, 0.1, 0},
			Metadata: map[string]any{
				"source_type":     "conversation",
				"conversation_id": int64(1),
				"file_id":         int64(11),
			},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestMemoryIndexQueryOrdering(t *testing.T) {
	idx := seedIndex(t)

	hits, err := idx.Query(context.Background(), []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "alpha", hits[0].Text)
	assert.Equal(t, "gamma", hits[1].Text)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
}

func TestMemoryIndexQueryTopK(t *testing.T) {
	idx := seedIndex(t)

	hits, err := idx.Query(context.Background(), []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alpha", hits[0].Text)
}

func TestMemoryIndexQueryFilters(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	hits, err := idx.Query(ctx, []float32{1, 0, 0}, 10, Eq("source_type", "knowledge_base"))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "beta", hits[0].Text)

	hits, err = idx.Query(ctx, []float32{1, 0, 0}, 10, In("file_id", int64(10), int64(20)))
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	combined := Or(
		Eq("conversation_id", int64(1)),
		And(Eq("source_type", "knowledge_base"), In("knowledge_base_id", int64(2))),
	)
	hits, err = idx.Query(ctx, []float32{1, 0, 0}, 10, combined)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = idx.Query(ctx, []float32{1, 0, 0}, 10, Eq("conversation_id", int64(99)))
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndexShapeMismatch(t *testing.T) {
	idx := NewMemoryIndex(3)
	ctx := context.Background()

	_, err := idx.Insert(ctx, []Document{{Text: "x", Vector: []float32{1, 0}}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	n, err := idx.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n, "failed insert must not index anything")

	_, err = idx.Query(ctx, []float32{1, 0}, 5, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestMemoryIndexDeleteByFilter(t *testing.T) {
	idx := seedIndex(t)
	ctx := context.Background()

	ok, err := idx.DeleteByFilter(ctx, Eq("conversation_id", int64(1)))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := idx.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// Deleting again matches nothing and still succeeds.
	ok, err = idx.DeleteByFilter(ctx, Eq("conversation_id", int64(1)))
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = idx.Count(ctx, Eq("source_type", "knowledge_base"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestMemoryIndexInsertReturnsIDsAndDelete(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	ids, err := idx.Insert(ctx, []Document{
		{Text: "one", Vector: []float32{1, 0}},
		{Text: "two", Vector: []float32{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	require.NoError(t, idx.Delete(ctx, ids[:1]))
	n, err := idx.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	hits, err := idx.Query(ctx, []float32{0, 1}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "two", hits[0].Text)

	// Unknown ids are skipped.
	require.NoError(t, idx.Delete(ctx, []string{"no-such-id"}))
	require.NoError(t, idx.Delete(ctx, nil))
}

func TestMatchValueNumericWidths(t *testing.T) {
	assert.True(t, matchValue(int64(5), 5))
	assert.True(t, matchValue(float64(5), int64(5)))
	assert.True(t, matchValue("a", "a"))
	assert.False(t, matchValue(int64(5), "5"))
	assert.False(t, matchValue(nil, int64(5)))
}
