package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memPoint struct {
	id       string
	text     string
	vector   []float32
	metadata map[string]any
}

// MemoryIndex is an in-process Index backed by a linear cosine scan. It is
// used in tests and as a development fallback when no Qdrant is available.
type MemoryIndex struct {
	mu     sync.RWMutex
	dim    int
	points []memPoint
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim}
}

func (m *MemoryIndex) Insert(_ context.Context, docs []Document) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		if len(doc.Vector) != m.dim {
			return nil, ErrShapeMismatch
		}
	}
	ids := make([]string, len(docs))
	for i, doc := range docs {
		meta := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		ids[i] = uuid.NewString()
		m.points = append(m.points, memPoint{
			id:       ids[i],
			text:     doc.Text,
			vector:   append([]float32(nil), doc.Vector...),
			metadata: meta,
		})
	}
	return ids, nil
}

func (m *MemoryIndex) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.points[:0]
	for _, p := range m.points {
		if _, ok := drop[p.id]; ok {
			continue
		}
		kept = append(kept, p)
	}
	m.points = kept
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, vec []float32, topK int, filter *Filter) ([]Hit, error) {
	if len(vec) != m.dim {
		return nil, ErrShapeMismatch
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]Hit, 0, len(m.points))
	for _, p := range m.points {
		if filter != nil && !matchFilter(filter, p.metadata) {
			continue
		}
		hits = append(hits, Hit{
			Text:     p.text,
			Distance: cosineDistance(vec, p.vector),
			Metadata: p.metadata,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) DeleteByFilter(_ context.Context, filter *Filter) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.points[:0]
	for _, p := range m.points {
		if filter != nil && matchFilter(filter, p.metadata) {
			continue
		}
		kept = append(kept, p)
	}
	m.points = kept
	return true, nil
}

func (m *MemoryIndex) Count(_ context.Context, filter *Filter) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if filter == nil {
		return uint64(len(m.points)), nil
	}
	var n uint64
	for _, p := range m.points {
		if matchFilter(filter, p.metadata) {
			n++
		}
	}
	return n, nil
}

func matchFilter(f *Filter, meta map[string]any) bool {
	switch f.Kind {
	case FilterEq:
		return matchValue(meta[f.Key], f.Value)
	case FilterIn:
		for _, v := range f.Values {
			if matchValue(meta[f.Key], v) {
				return true
			}
		}
		return false
	case FilterAnd:
		for _, sub := range f.Subs {
			if !matchFilter(sub, meta) {
				return false
			}
		}
		return true
	case FilterOr:
		for _, sub := range f.Subs {
			if matchFilter(sub, meta) {
				return true
			}
		}
		return false
	}
	return false
}

// matchValue compares payload values tolerating the usual numeric widths.
func matchValue(have, want any) bool {
	if have == nil {
		return false
	}
	hi, hOK := asInt64(have)
	wi, wOK := asInt64(want)
	if hOK && wOK {
		return hi == wi
	}
	return have == want
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
