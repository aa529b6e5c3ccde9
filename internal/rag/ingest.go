package rag

import (
	"context"
	"fmt"

	"ragchat/internal/model"
	"ragchat/internal/pkg/docload"
	"ragchat/internal/vector"
)

// Source type values stored in chunk metadata.
const (
	SourceConversation  = "conversation_file"
	SourceKnowledgeBase = "knowledge_base"
)

// Metadata keys stored on every indexed chunk.
const (
	metaSourceType      = "source_type"
	metaFileID          = "file_id"
	metaConversationID  = "conversation_id"
	metaKnowledgeBaseID = "knowledge_base_id"
	metaUserID          = "user_id"
	metaChunkIndex      = "chunk_index"
	metaFileName        = "file_name"
	metaPageNumber      = "page_number"
)

// Embedder turns texts into vectors. Results are aligned with the input.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Ingestor chunks extracted pages, embeds them and writes them to the
// vector index.
type Ingestor struct {
	chunker  *Chunker
	embedder Embedder
	index    vector.Index
}

func NewIngestor(chunker *Chunker, embedder Embedder, index vector.Index) *Ingestor {
	return &Ingestor{chunker: chunker, embedder: embedder, index: index}
}

// IngestConversationFile indexes a file scoped to one conversation and
// returns the number of chunks written.
func (g *Ingestor) IngestConversationFile(ctx context.Context, file *model.ConversationFile, pages []docload.Page) (int, error) {
	base := map[string]any{
		metaSourceType:     SourceConversation,
		metaConversationID: int64(file.ConversationID),
		metaFileID:         int64(file.ID),
		metaUserID:         int64(file.UserID),
		metaFileName:       file.FileName,
	}
	return g.ingest(ctx, pages, base)
}

// IngestKnowledgeBaseFile indexes a file scoped to one knowledge base and
// returns the number of chunks written.
func (g *Ingestor) IngestKnowledgeBaseFile(ctx context.Context, file *model.KnowledgeBaseFile, pages []docload.Page) (int, error) {
	base := map[string]any{
		metaSourceType:      SourceKnowledgeBase,
		metaKnowledgeBaseID: int64(file.KnowledgeBaseID),
		metaFileID:          int64(file.ID),
		metaUserID:          int64(file.UserID),
		metaFileName:        file.FileName,
	}
	return g.ingest(ctx, pages, base)
}

func (g *Ingestor) ingest(ctx context.Context, pages []docload.Page, base map[string]any) (int, error) {
	var texts []string
	var metas []map[string]any
	chunkIndex := int64(0)
	for _, page := range pages {
		for _, chunk := range g.chunker.Split(page.Text) {
			meta := make(map[string]any, len(base)+2)
			for k, v := range base {
				meta[k] = v
			}
			meta[metaPageNumber] = int64(page.Number)
			meta[metaChunkIndex] = chunkIndex
			chunkIndex++
			texts = append(texts, chunk)
			metas = append(metas, meta)
		}
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := g.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding count %d does not match chunk count %d", len(vectors), len(texts))
	}

	docs := make([]vector.Document, len(texts))
	for i := range texts {
		docs[i] = vector.Document{Text: texts[i], Vector: vectors[i], Metadata: metas[i]}
	}
	if _, err := g.index.Insert(ctx, docs); err != nil {
		return 0, fmt.Errorf("index chunks failed: %w", err)
	}
	return len(texts), nil
}

// DeleteFileChunks drops every chunk indexed for a file.
func (g *Ingestor) DeleteFileChunks(ctx context.Context, fileID uint, sourceType string) error {
	filter := vector.And(
		vector.Eq(metaSourceType, sourceType),
		vector.Eq(metaFileID, int64(fileID)),
	)
	if _, err := g.index.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("delete file chunks failed: %w", err)
	}
	return nil
}

// DeleteConversationChunks drops every chunk indexed for a conversation.
func (g *Ingestor) DeleteConversationChunks(ctx context.Context, conversationID uint) error {
	filter := vector.Eq(metaConversationID, int64(conversationID))
	if _, err := g.index.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("delete conversation chunks failed: %w", err)
	}
	return nil
}

// DeleteKnowledgeBaseChunks drops every chunk indexed for a knowledge base.
func (g *Ingestor) DeleteKnowledgeBaseChunks(ctx context.Context, knowledgeBaseID uint) error {
	filter := vector.And(
		vector.Eq(metaSourceType, SourceKnowledgeBase),
		vector.Eq(metaKnowledgeBaseID, int64(knowledgeBaseID)),
	)
	if _, err := g.index.DeleteByFilter(ctx, filter); err != nil {
		return fmt.Errorf("delete knowledge base chunks failed: %w", err)
	}
	return nil
}
