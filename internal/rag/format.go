package rag

import (
	"fmt"
	"math"
	"strings"

	"ragchat/internal/model"
)

const previewRunes = 200

// FormatContext renders retrieved chunks as the reference block injected
// into the system prompt.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[文件: %s - 第%d页]\n%s", r.FileName, r.PageNumber, r.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Summarize converts results into the client-facing event payload with
// truncated previews and display-rounded scores.
func Summarize(results []Result) *model.RetrievalSummary {
	items := make([]model.RetrievalItem, len(results))
	for i, r := range results {
		content := r.Content
		if runes := []rune(content); len(runes) > previewRunes {
			content = string(runes[:previewRunes]) + "..."
		}
		items[i] = model.RetrievalItem{
			FileID:          r.FileID,
			KnowledgeBaseID: r.KnowledgeBaseID,
			FileName:        r.FileName,
			PageNumber:      r.PageNumber,
			Content:         content,
			Score:           math.Round(r.Score*10000) / 10000,
			SourceType:      r.SourceType,
		}
	}
	return &model.RetrievalSummary{Count: len(items), Results: items}
}
