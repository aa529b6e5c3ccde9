package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const payloadTextKey = "text"

// QdrantIndex implements Index on a Qdrant collection with cosine distance.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// NewQdrantIndex connects to Qdrant over gRPC and creates the collection if
// it does not exist yet.
func NewQdrantIndex(ctx context.Context, host string, port int, collection string, dim int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant failed: %w", err)
	}
	idx := &QdrantIndex{client: client, collection: collection, dim: dim}
	if err := idx.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	existing, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections failed: %w", err)
	}
	for _, name := range existing {
		if name == q.collection {
			return nil
		}
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s failed: %w", q.collection, err)
	}
	return nil
}

// Close releases the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func (q *QdrantIndex) Insert(ctx context.Context, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(docs))
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != q.dim {
			return nil, ErrShapeMismatch
		}
		payload := make(map[string]any, len(doc.Metadata)+1)
		payload[payloadTextKey] = doc.Text
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		ids[i] = uuid.NewString()
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ids[i]),
			Vectors: qdrant.NewVectors(doc.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert points failed: %w", err)
	}
	return ids, nil
}

func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete points by id failed: %w", err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Hit, error) {
	if len(vec) != q.dim {
		return nil, ErrShapeMismatch
	}
	qf, err := toQdrantFilter(filter)
	if err != nil {
		return nil, err
	}
	limit := uint64(topK)
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query points failed: %w", err)
	}

	hits := make([]Hit, 0, len(resp))
	for _, pt := range resp {
		payload := pt.GetPayload()
		text := ""
		meta := make(map[string]any, len(payload))
		for k, v := range payload {
			if k == payloadTextKey {
				text = v.GetStringValue()
				continue
			}
			meta[k] = valueToAny(v)
		}
		// Qdrant reports cosine similarity; callers expect distance.
		hits = append(hits, Hit{
			Text:     text,
			Distance: 1 - float64(pt.GetScore()),
			Metadata: meta,
		})
	}
	return hits, nil
}

func (q *QdrantIndex) DeleteByFilter(ctx context.Context, filter *Filter) (bool, error) {
	qf, err := toQdrantFilter(filter)
	if err != nil {
		return false, err
	}
	_, err = q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: qf},
		},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return false, fmt.Errorf("delete points failed: %w", err)
	}
	return true, nil
}

func (q *QdrantIndex) Count(ctx context.Context, filter *Filter) (uint64, error) {
	qf, err := toQdrantFilter(filter)
	if err != nil {
		return 0, err
	}
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Filter:         qf,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("count points failed: %w", err)
	}
	return n, nil
}

// toQdrantFilter translates the filter tree to Qdrant's Must/Should form.
func toQdrantFilter(f *Filter) (*qdrant.Filter, error) {
	if f == nil {
		return nil, nil
	}
	switch f.Kind {
	case FilterAnd, FilterOr:
		conds := make([]*qdrant.Condition, 0, len(f.Subs))
		for _, sub := range f.Subs {
			c, err := toCondition(sub)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		if f.Kind == FilterAnd {
			return &qdrant.Filter{Must: conds}, nil
		}
		return &qdrant.Filter{Should: conds}, nil
	default:
		c, err := toCondition(f)
		if err != nil {
			return nil, err
		}
		return &qdrant.Filter{Must: []*qdrant.Condition{c}}, nil
	}
}

func toCondition(f *Filter) (*qdrant.Condition, error) {
	switch f.Kind {
	case FilterEq:
		if i, ok := asInt64(f.Value); ok {
			return qdrant.NewMatchInt(f.Key, i), nil
		}
		if s, ok := f.Value.(string); ok {
			return qdrant.NewMatch(f.Key, s), nil
		}
		return nil, fmt.Errorf("unsupported filter value type %T for key %s", f.Value, f.Key)
	case FilterIn:
		if len(f.Values) == 0 {
			return nil, fmt.Errorf("empty value set for key %s", f.Key)
		}
		if _, ok := asInt64(f.Values[0]); ok {
			ints := make([]int64, len(f.Values))
			for i, v := range f.Values {
				n, ok := asInt64(v)
				if !ok {
					return nil, fmt.Errorf("mixed value types for key %s", f.Key)
				}
				ints[i] = n
			}
			return qdrant.NewMatchInts(f.Key, ints...), nil
		}
		strs := make([]string, len(f.Values))
		for i, v := range f.Values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("mixed value types for key %s", f.Key)
			}
			strs[i] = s
		}
		return qdrant.NewMatchKeywords(f.Key, strs...), nil
	case FilterAnd, FilterOr:
		sub, err := toQdrantFilter(f)
		if err != nil {
			return nil, err
		}
		return &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Filter{Filter: sub},
		}, nil
	}
	return nil, fmt.Errorf("unknown filter kind %d", f.Kind)
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	}
	return nil
}
