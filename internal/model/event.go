package model

// StreamEvent is one line of the chat NDJSON stream. Exactly one field is
// set per event so each line marshals to a single-key object.
type StreamEvent struct {
	Files      *FileIntakeResult `json:"files,omitempty"`
	RAGResults *RetrievalSummary `json:"rag_results,omitempty"`
	Token      *string           `json:"token,omitempty"`
	Error      *string           `json:"error,omitempty"`
	SaveError  *string           `json:"save_error,omitempty"`
	Metadata   *ChatMetadata     `json:"metadata,omitempty"`
}

// TokenEvent wraps a streamed model token.
func TokenEvent(token string) StreamEvent {
	return StreamEvent{Token: &token}
}

// ErrorEvent wraps a generation failure.
func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Error: &msg}
}

// SaveErrorEvent wraps a persistence failure surfaced after streaming.
func SaveErrorEvent(msg string) StreamEvent {
	return StreamEvent{SaveError: &msg}
}

// SavedFile describes one successfully stored upload.
type SavedFile struct {
	FileID   uint   `json:"file_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// FileIntakeResult reports the per-file outcome of a multipart upload.
type FileIntakeResult struct {
	Saved  []SavedFile `json:"saved"`
	Errors []string    `json:"errors,omitempty"`
}

// RetrievalItem is one retrieved chunk as exposed to clients. Content is a
// truncated preview and Score is rounded for display.
type RetrievalItem struct {
	FileID          uint    `json:"file_id"`
	KnowledgeBaseID uint    `json:"knowledge_base_id,omitempty"`
	FileName        string  `json:"file_name"`
	PageNumber      int     `json:"page_number"`
	Content         string  `json:"content"`
	Score           float64 `json:"score"`
	SourceType      string  `json:"source_type"`
}

// RetrievalSummary reports what retrieval found for the current round.
type RetrievalSummary struct {
	Count   int             `json:"count"`
	Results []RetrievalItem `json:"results"`
}

// ChatMetadata closes a round: persisted message IDs plus conversation
// identity. Timestamps are unix milliseconds.
type ChatMetadata struct {
	UserMessageID    uint   `json:"user_message_id"`
	LLMMessageID     uint   `json:"llm_message_id"`
	ConversationID   uint   `json:"conversation_id"`
	ConversationName string `json:"conversation_name"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// RoundLogEntry is the payload published to the round-log queue after each
// chat round. The worker resolves the round number at consume time.
type RoundLogEntry struct {
	ConversationID   uint   `json:"conversation_id"`
	UserID           uint   `json:"user_id"`
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	FilesResult      string `json:"files_result,omitempty"`
	RAGResults       string `json:"rag_results,omitempty"`
	Error            string `json:"error,omitempty"`
	SaveError        string `json:"save_error,omitempty"`
}
