package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragchat/internal/ai"
	"ragchat/internal/model"
	"ragchat/internal/rag"
	"ragchat/pkg/logger"
	"ragchat/pkg/metrics"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageEmpty         = errors.New("message content is empty")
	ErrLLMConfig            = errors.New("llm config is invalid")
)

const defaultConversationName = "New Chat"

// ConversationStore persists conversations.
type ConversationStore interface {
	Create(conversation *model.Conversation) error
	GetByID(conversationID uint) (*model.Conversation, error)
	GetByIDAndUserID(conversationID, userID uint) (*model.Conversation, error)
	ListByUserID(userID uint) ([]model.Conversation, error)
	UpdateName(conversationID uint, name string) error
	UpdateSummary(conversationID uint, summary string) error
	Touch(conversationID uint) error
	DeleteByIDAndUserID(conversationID, userID uint) error
}

// MessageStore persists chat messages.
type MessageStore interface {
	CreateBatch(messages []*model.Message) error
	ListRecent(conversationID uint, limit int) ([]model.Message, error)
	ListByConversationID(conversationID uint) ([]model.Message, error)
	CountByConversationID(conversationID uint) (int64, error)
	DeleteByConversationID(conversationID uint) error
}

// KnowledgeBaseResolver narrows requested knowledge bases to ones the user
// owns and that finished ingestion.
type KnowledgeBaseResolver interface {
	ListPublishedByIDs(userID uint, ids []uint) ([]model.KnowledgeBase, error)
}

// HistoryCache is the read-through cache over recent messages.
type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, conversationID uint) error
	MarkDirty(ctx context.Context, conversationID uint) error
	IsDirty(ctx context.Context, conversationID uint) (bool, error)
}

// RoundLogQueue hands finished rounds to the async audit pipeline.
type RoundLogQueue interface {
	Publish(ctx context.Context, entry model.RoundLogEntry) error
}

// LLMClient is the chat completion surface of the model provider.
type LLMClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ChunkRetriever answers similarity queries over indexed chunks.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, conversationID uint, knowledgeBaseIDs []uint) ([]rag.Result, error)
}

// ChatService runs the chat round pipeline: intake, retrieval, streaming
// generation and partial-failure-safe persistence.
type ChatService struct {
	conversationRepo ConversationStore
	messageRepo      MessageStore
	kbResolver       KnowledgeBaseResolver
	modelConfigRepo  ModelConfigStore
	fileService      *ConversationFileService
	retriever        ChunkRetriever
	historyCache     HistoryCache
	roundLogQueue    RoundLogQueue
	llmClient        LLMClient
	defaultLLM       ai.ChatConfig
	maxRounds        int
	summaryInterval  int
	log              *logger.Logger
}

// ChatInput is one round request. ConversationID 0 starts a new
// conversation.
type ChatInput struct {
	UserID           uint
	ConversationID   uint
	Message          string
	Files            []UploadedFile
	KnowledgeBaseIDs []uint
}

func NewChatService(
	conversationRepo ConversationStore,
	messageRepo MessageStore,
	kbResolver KnowledgeBaseResolver,
	modelConfigRepo ModelConfigStore,
	fileService *ConversationFileService,
	retriever ChunkRetriever,
	historyCache HistoryCache,
	roundLogQueue RoundLogQueue,
	llmClient LLMClient,
	defaultLLM ai.ChatConfig,
	maxRounds int,
	summaryInterval int,
	log *logger.Logger,
) *ChatService {
	if maxRounds <= 0 {
		maxRounds = 20
	}
	if summaryInterval <= 0 {
		summaryInterval = 20
	}
	return &ChatService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		kbResolver:       kbResolver,
		modelConfigRepo:  modelConfigRepo,
		fileService:      fileService,
		retriever:        retriever,
		historyCache:     historyCache,
		roundLogQueue:    roundLogQueue,
		llmClient:        llmClient,
		defaultLLM:       defaultLLM,
		maxRounds:        maxRounds,
		summaryInterval:  summaryInterval,
		log:              log.Named("chat"),
	}
}

// roundState carries everything the round accumulates for the final
// persistence and audit steps.
type roundState struct {
	conversation *model.Conversation
	userMessage  string
	assistant    string
	filesResult  *model.FileIntakeResult
	ragResults   *model.RetrievalSummary
	errMsg       string
	saveErrMsg   string
}

// ProcessChat runs one chat round and emits NDJSON events through emit.
// Generation failures surface as error events; persistence always runs and
// its failures surface as save_error events. An emit error means the client
// is gone and aborts the round.
func (s *ChatService) ProcessChat(ctx context.Context, input ChatInput, emit func(model.StreamEvent) error) error {
	input.Message = strings.TrimSpace(input.Message)
	if input.UserID == 0 || input.Message == "" {
		return emit(model.ErrorEvent(ErrMessageEmpty.Error()))
	}

	state := &roundState{userMessage: input.Message}

	if input.ConversationID != 0 {
		conversation, err := s.conversationRepo.GetByID(input.ConversationID)
		if err != nil {
			return emit(model.ErrorEvent(err.Error()))
		}
		if conversation == nil {
			return emit(model.ErrorEvent(fmt.Sprintf("conversation %d not found", input.ConversationID)))
		}
		if conversation.UserID != input.UserID {
			return emit(model.ErrorEvent("Unauthorized access to conversation"))
		}
		state.conversation = conversation
	}

	if err := s.runRound(ctx, input, state, emit); err != nil {
		return err
	}
	if err := s.finalize(ctx, input.UserID, state, emit); err != nil {
		return err
	}
	s.auditRound(ctx, state)

	outcome := "ok"
	if state.errMsg != "" || state.saveErrMsg != "" {
		outcome = "error"
	}
	metrics.ObserveChatRound(outcome)
	return nil
}

func (s *ChatService) runRound(ctx context.Context, input ChatInput, state *roundState, emit func(model.StreamEvent) error) error {
	// Files need a conversation to attach to, so a new conversation is
	// created up front when the first round carries uploads.
	if len(input.Files) > 0 && state.conversation == nil {
		conversation, err := s.createConversation(input.UserID, input.Message)
		if err != nil {
			state.errMsg = err.Error()
			return emit(model.ErrorEvent(state.errMsg))
		}
		state.conversation = conversation
	}

	if len(input.Files) > 0 {
		saved, fileErrs := s.fileService.SaveFiles(state.conversation.ID, input.UserID, input.Files)
		state.filesResult = &model.FileIntakeResult{Errors: fileErrs}
		for _, f := range saved {
			state.filesResult.Saved = append(state.filesResult.Saved, model.SavedFile{
				FileID:   f.ID,
				FileName: f.FileName,
				FileSize: f.FileSize,
			})
		}
		if err := emit(model.StreamEvent{Files: state.filesResult}); err != nil {
			return err
		}
		// Indexing failures keep the round going without that file.
		for i := range saved {
			if err := s.fileService.IngestFile(ctx, &saved[i]); err != nil {
				s.log.Warnw("ingest conversation file failed",
					"file_id", saved[i].ID,
					"file_name", saved[i].FileName,
					"error", err,
				)
			}
		}
	}

	var fileNames []string
	conversationID := uint(0)
	summary := ""
	if state.conversation != nil {
		conversationID = state.conversation.ID
		summary = state.conversation.Summary
		files, err := s.fileService.ListFiles(conversationID)
		if err != nil {
			s.log.Warnw("list conversation files failed", "conversation_id", conversationID, "error", err)
		}
		for _, f := range files {
			fileNames = append(fileNames, f.FileName)
		}
	}

	kbIDs, err := s.resolveKnowledgeBases(input.UserID, input.KnowledgeBaseIDs)
	if err != nil {
		s.log.Warnw("resolve knowledge bases failed", "error", err)
	}

	ragContext := ""
	if conversationID != 0 || len(kbIDs) > 0 {
		metrics.IncVectorQueries()
		results, err := s.retriever.Retrieve(ctx, input.Message, conversationID, kbIDs)
		if err != nil {
			// Retrieval is best effort: the round degrades to plain chat.
			s.log.Warnw("retrieve failed", "conversation_id", conversationID, "error", err)
		} else if len(results) > 0 {
			state.ragResults = rag.Summarize(results)
			if err := emit(model.StreamEvent{RAGResults: state.ragResults}); err != nil {
				return err
			}
			ragContext = rag.FormatContext(results)
		}
	}

	systemPrompt := buildSystemPrompt(summary, ragContext, fileNames)
	promptMessages, err := s.buildPromptMessages(ctx, conversationID, systemPrompt, input.Message)
	if err != nil {
		state.errMsg = err.Error()
		return emit(model.ErrorEvent(state.errMsg))
	}

	cfg, err := s.resolveLLM(input.UserID)
	if err != nil {
		state.errMsg = err.Error()
		return emit(model.ErrorEvent(state.errMsg))
	}

	var emitErr error
	full, err := s.llmClient.StreamComplete(ctx, cfg, promptMessages, func(chunk string) error {
		metrics.AddTokensStreamed(1)
		state.assistant += chunk
		if e := emit(model.TokenEvent(chunk)); e != nil {
			emitErr = e
			return e
		}
		return nil
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		state.errMsg = err.Error()
		return emit(model.ErrorEvent(state.errMsg))
	}
	state.assistant = strings.TrimSpace(full)
	return nil
}

// finalize persists the round. It always runs, even after generation
// errors, so the user's message survives.
func (s *ChatService) finalize(ctx context.Context, userID uint, state *roundState, emit func(model.StreamEvent) error) error {
	if state.conversation == nil {
		conversation, err := s.createConversation(userID, state.assistant)
		if err != nil {
			state.saveErrMsg = err.Error()
			return emit(model.SaveErrorEvent(state.saveErrMsg))
		}
		state.conversation = conversation
	}
	conversationID := state.conversation.ID

	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        state.userMessage,
	}
	llmMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        state.assistant,
	}
	if err := s.messageRepo.CreateBatch([]*model.Message{userMsg, llmMsg}); err != nil {
		state.saveErrMsg = err.Error()
		return emit(model.SaveErrorEvent(state.saveErrMsg))
	}

	if s.historyCache != nil {
		_ = s.historyCache.MarkDirty(ctx, conversationID)
		_ = s.historyCache.DeleteHistory(ctx, conversationID)
	}

	if err := s.conversationRepo.Touch(conversationID); err != nil {
		s.log.Warnw("touch conversation failed", "conversation_id", conversationID, "error", err)
	} else {
		state.conversation.UpdatedAt = time.Now()
	}

	if count, err := s.messageRepo.CountByConversationID(conversationID); err == nil {
		if count > 0 && count%int64(s.summaryInterval) == 0 {
			go s.generateSummary(conversationID)
		}
	}

	return emit(model.StreamEvent{Metadata: &model.ChatMetadata{
		UserMessageID:    userMsg.ID,
		LLMMessageID:     llmMsg.ID,
		ConversationID:   conversationID,
		ConversationName: state.conversation.Name,
		CreatedAt:        state.conversation.CreatedAt.UnixMilli(),
		UpdatedAt:        state.conversation.UpdatedAt.UnixMilli(),
	}})
}

// auditRound publishes the finished round to the log queue. Only rounds
// with an assistant reply are audited.
func (s *ChatService) auditRound(ctx context.Context, state *roundState) {
	if s.roundLogQueue == nil || state.conversation == nil || state.assistant == "" {
		return
	}
	entry := model.RoundLogEntry{
		ConversationID:   state.conversation.ID,
		UserID:           state.conversation.UserID,
		UserMessage:      state.userMessage,
		AssistantMessage: state.assistant,
		Error:            state.errMsg,
		SaveError:        state.saveErrMsg,
	}
	if state.filesResult != nil {
		entry.FilesResult = marshalJSON(state.filesResult)
	}
	if state.ragResults != nil {
		entry.RAGResults = marshalJSON(state.ragResults)
	}
	if err := s.roundLogQueue.Publish(ctx, entry); err != nil {
		s.log.Warnw("publish round log failed", "conversation_id", state.conversation.ID, "error", err)
	}
}

func (s *ChatService) createConversation(userID uint, seed string) (*model.Conversation, error) {
	name := defaultConversationName
	if trimmed := strings.TrimSpace(seed); trimmed != "" {
		if runes := []rune(trimmed); len(runes) > 50 {
			name = string(runes[:50])
		} else {
			name = trimmed
		}
	}
	conversation := &model.Conversation{
		UserID: userID,
		Name:   name,
	}
	if err := s.conversationRepo.Create(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// buildPromptMessages assembles the windowed history plus the current
// question, with the system prompt first when present.
func (s *ChatService) buildPromptMessages(ctx context.Context, conversationID uint, systemPrompt, userMessage string) ([]ai.ChatMessage, error) {
	var history []model.Message
	if conversationID != 0 {
		var err error
		history, err = s.recentHistory(ctx, conversationID)
		if err != nil {
			return nil, err
		}
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, ai.ChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, item := range history {
		messages = append(messages, ai.ChatMessage{Role: item.Role, Content: item.Content})
	}
	messages = append(messages, ai.ChatMessage{Role: model.RoleUser, Content: userMessage})
	return messages, nil
}

func (s *ChatService) recentHistory(ctx context.Context, conversationID uint) ([]model.Message, error) {
	limit := s.maxRounds * 2
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListRecent(conversationID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, conversationID, messages)
		}
	}
	return messages, nil
}

func (s *ChatService) resolveKnowledgeBases(userID uint, requested []uint) ([]uint, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	kbs, err := s.kbResolver.ListPublishedByIDs(userID, requested)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(kbs))
	for _, kb := range kbs {
		ids = append(ids, kb.ID)
	}
	return ids, nil
}

// resolveLLM applies the user's saved model config over the server default.
func (s *ChatService) resolveLLM(userID uint) (ai.ChatConfig, error) {
	cfg := s.defaultLLM
	if s.modelConfigRepo != nil {
		userCfg, err := s.modelConfigRepo.GetByUserID(userID)
		if err != nil {
			return ai.ChatConfig{}, err
		}
		if userCfg != nil {
			if strings.TrimSpace(userCfg.ModelName) != "" {
				cfg.Model = strings.TrimSpace(userCfg.ModelName)
			}
			if strings.TrimSpace(userCfg.BaseURL) != "" {
				cfg.BaseURL = strings.TrimSpace(userCfg.BaseURL)
			}
			if strings.TrimSpace(userCfg.APIKey) != "" {
				cfg.APIKey = strings.TrimSpace(userCfg.APIKey)
			}
			if userCfg.Temperature > 0 {
				cfg.Temperature = userCfg.Temperature
			}
		}
	}
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return ai.ChatConfig{}, ErrLLMConfig
	}
	return cfg, nil
}

// generateSummary condenses the whole history into the conversation summary.
// Runs in the background after every summaryInterval messages.
func (s *ChatService) generateSummary(conversationID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	messages, err := s.messageRepo.ListByConversationID(conversationID)
	if err != nil || len(messages) == 0 {
		return
	}

	cfg := s.defaultLLM
	if cfg.BaseURL == "" || cfg.APIKey == "" || cfg.Model == "" {
		return
	}
	summary, err := s.llmClient.Complete(ctx, cfg, []ai.ChatMessage{
		{Role: model.RoleUser, Content: buildSummaryPrompt(messages)},
	})
	if err != nil {
		s.log.Warnw("generate summary failed", "conversation_id", conversationID, "error", err)
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	if err := s.conversationRepo.UpdateSummary(conversationID, summary); err != nil {
		s.log.Warnw("save summary failed", "conversation_id", conversationID, "error", err)
	}
}

func (s *ChatService) ListConversations(userID uint) ([]model.Conversation, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListByUserID(userID)
}

func (s *ChatService) GetMessages(userID, conversationID uint) ([]model.Message, error) {
	if userID == 0 || conversationID == 0 {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversationRepo.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return s.messageRepo.ListByConversationID(conversationID)
}

// DeleteConversation removes the conversation with its messages, files and
// indexed chunks. Index and cache cleanup are best effort.
func (s *ChatService) DeleteConversation(ctx context.Context, userID, conversationID uint) error {
	if userID == 0 || conversationID == 0 {
		return ErrInvalidInput
	}
	conversation, err := s.conversationRepo.GetByIDAndUserID(conversationID, userID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return ErrConversationNotFound
	}

	s.fileService.Cleanup(ctx, conversationID)
	if err := s.messageRepo.DeleteByConversationID(conversationID); err != nil {
		return err
	}
	if err := s.conversationRepo.DeleteByIDAndUserID(conversationID, userID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, conversationID)
	}
	return nil
}
