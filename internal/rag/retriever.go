package rag

import (
	"context"
	"fmt"

	"ragchat/internal/vector"
)

const DefaultTopK = 5

// Result is one retrieved chunk with its similarity score. Score is cosine
// similarity, larger is better.
type Result struct {
	FileID          uint
	KnowledgeBaseID uint
	FileName        string
	PageNumber      int
	Content         string
	Score           float64
	SourceType      string
}

// Retriever answers similarity queries over the chunk index.
type Retriever struct {
	embedder Embedder
	index    vector.Index
	topK     int
}

func NewRetriever(embedder Embedder, index vector.Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// ConversationScope limits retrieval to one conversation's file chunks.
func ConversationScope(conversationID uint) *vector.Filter {
	return vector.And(
		vector.Eq(metaSourceType, SourceConversation),
		vector.Eq(metaConversationID, int64(conversationID)),
	)
}

// KnowledgeBaseScope limits retrieval to a set of knowledge bases.
func KnowledgeBaseScope(ids []uint) *vector.Filter {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = int64(id)
	}
	return vector.And(
		vector.Eq(metaSourceType, SourceKnowledgeBase),
		vector.In(metaKnowledgeBaseID, values...),
	)
}

// FileScope limits retrieval to the chunks of a single file.
func FileScope(fileID uint) *vector.Filter {
	return vector.Eq(metaFileID, int64(fileID))
}

// FilesScope limits retrieval to the chunks of a file id set.
func FilesScope(fileIDs []uint) *vector.Filter {
	values := make([]any, len(fileIDs))
	for i, id := range fileIDs {
		values[i] = int64(id)
	}
	return vector.In(metaFileID, values...)
}

// CombinedScope spans a conversation's files and a knowledge base set in
// one disjunctive filter, so one index query covers both sources. Either
// side may be empty; both empty means unscoped (nil).
func CombinedScope(conversationID uint, knowledgeBaseIDs []uint) *vector.Filter {
	switch {
	case conversationID != 0 && len(knowledgeBaseIDs) > 0:
		return vector.Or(ConversationScope(conversationID), KnowledgeBaseScope(knowledgeBaseIDs))
	case conversationID != 0:
		return ConversationScope(conversationID)
	case len(knowledgeBaseIDs) > 0:
		return KnowledgeBaseScope(knowledgeBaseIDs)
	default:
		return nil
	}
}

// Retrieve searches the conversation scope and the given knowledge bases
// in a single index query and returns the overall best results. Either
// scope may be empty: conversationID 0 skips conversation files, an empty
// ID list skips knowledge bases.
func (r *Retriever) Retrieve(ctx context.Context, query string, conversationID uint, knowledgeBaseIDs []uint) ([]Result, error) {
	if conversationID == 0 && len(knowledgeBaseIDs) == 0 {
		return nil, nil
	}
	return r.RetrieveScoped(ctx, query, CombinedScope(conversationID, knowledgeBaseIDs))
}

// RetrieveScoped searches within an arbitrary scope filter. A nil scope
// searches the whole index.
func (r *Retriever) RetrieveScoped(ctx context.Context, query string, scope *vector.Filter) ([]Result, error) {
	if query == "" {
		return nil, nil
	}
	vecs, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query returned %d vectors", len(vecs))
	}

	hits, err := r.index.Query(ctx, vecs[0], r.topK, scope)
	if err != nil {
		return nil, fmt.Errorf("query chunks failed: %w", err)
	}
	return hitsToResults(hits), nil
}

func hitsToResults(hits []vector.Hit) []Result {
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{
			FileID:          uint(metaInt(hit.Metadata, metaFileID)),
			KnowledgeBaseID: uint(metaInt(hit.Metadata, metaKnowledgeBaseID)),
			FileName:        metaString(hit.Metadata, metaFileName),
			PageNumber:      int(metaInt(hit.Metadata, metaPageNumber)),
			Content:         hit.Text,
			Score:           1 - hit.Distance,
			SourceType:      metaString(hit.Metadata, metaSourceType),
		})
	}
	return results
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return s
}

func metaInt(meta map[string]any, key string) int64 {
	switch v := meta[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	}
	return 0
}
