package app

import (
	"context"
	"sync"
	"time"

	"ragchat/internal/ai"
	"ragchat/internal/model"
	"ragchat/internal/pkg/docload"
	"ragchat/internal/rag"
)

type fakeConversationStore struct {
	mu        sync.Mutex
	nextID    uint
	items     map[uint]*model.Conversation
	summaries map[uint]string
	touched   int
	createErr error
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{items: map[uint]*model.Conversation{}, summaries: map[uint]string{}}
}

func (f *fakeConversationStore) Create(c *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeConversationStore) GetByID(conversationID uint) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[conversationID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversationStore) GetByIDAndUserID(conversationID, userID uint) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.items[conversationID]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConversationStore) ListByUserID(userID uint) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Conversation
	for _, c := range f.items {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversationStore) UpdateName(conversationID uint, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.items[conversationID]; ok {
		c.Name = name
	}
	return nil
}

func (f *fakeConversationStore) UpdateSummary(conversationID uint, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[conversationID] = summary
	if c, ok := f.items[conversationID]; ok {
		c.Summary = summary
	}
	return nil
}

func (f *fakeConversationStore) Touch(conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.items[conversationID]; ok {
		c.UpdatedAt = time.Now()
	}
	f.touched++
	return nil
}

func (f *fakeConversationStore) touchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touched
}

func (f *fakeConversationStore) DeleteByIDAndUserID(conversationID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, conversationID)
	return nil
}

func (f *fakeConversationStore) summary(conversationID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries[conversationID]
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   uint
	messages []model.Message
	saveErr  error
}

func (f *fakeMessageStore) CreateBatch(messages []*model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, m := range messages {
		f.nextID++
		m.ID = f.nextID
		f.messages = append(f.messages, *m)
	}
	return nil
}

func (f *fakeMessageStore) ListRecent(conversationID uint, limit int) ([]model.Message, error) {
	all, _ := f.ListByConversationID(conversationID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeMessageStore) ListByConversationID(conversationID uint) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessageStore) CountByConversationID(conversationID uint) (int64, error) {
	all, _ := f.ListByConversationID(conversationID)
	return int64(len(all)), nil
}

func (f *fakeMessageStore) DeleteByConversationID(conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Message
	for _, m := range f.messages {
		if m.ConversationID != conversationID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

type fakeKBResolver struct {
	published []model.KnowledgeBase
}

func (f *fakeKBResolver) ListPublishedByIDs(userID uint, ids []uint) ([]model.KnowledgeBase, error) {
	return f.published, nil
}

type fakeModelConfigStore struct {
	cfg *model.ModelConfig
}

func (f *fakeModelConfigStore) GetByUserID(userID uint) (*model.ModelConfig, error) {
	return f.cfg, nil
}
func (f *fakeModelConfigStore) Upsert(cfg *model.ModelConfig) error { f.cfg = cfg; return nil }
func (f *fakeModelConfigStore) DeleteByUserID(userID uint) error    { f.cfg = nil; return nil }

type fakeHistoryCache struct {
	mu      sync.Mutex
	history map[uint][]model.Message
	dirty   map[uint]bool
	deletes int
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{history: map[uint][]model.Message{}, dirty: map[uint]bool{}}
}

func (f *fakeHistoryCache) GetHistory(_ context.Context, conversationID uint) ([]model.Message, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs, ok := f.history[conversationID]
	return msgs, ok, nil
}

func (f *fakeHistoryCache) SetHistory(_ context.Context, conversationID uint, messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[conversationID] = messages
	return nil
}

func (f *fakeHistoryCache) DeleteHistory(_ context.Context, conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.history, conversationID)
	f.deletes++
	return nil
}

func (f *fakeHistoryCache) MarkDirty(_ context.Context, conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirty[conversationID] = true
	return nil
}

func (f *fakeHistoryCache) IsDirty(_ context.Context, conversationID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty[conversationID], nil
}

type fakeRoundLogQueue struct {
	mu      sync.Mutex
	entries []model.RoundLogEntry
}

func (f *fakeRoundLogQueue) Publish(_ context.Context, entry model.RoundLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRoundLogQueue) all() []model.RoundLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RoundLogEntry(nil), f.entries...)
}

// fakeLLM streams canned chunks, optionally failing midway.
type fakeLLM struct {
	mu            sync.Mutex
	chunks        []string
	streamErr     error
	errAfter      int
	completeReply string
	completeErr   error
	lastMessages  []ai.ChatMessage
	completes     int
}

func (f *fakeLLM) Complete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	f.lastMessages = messages
	return f.completeReply, f.completeErr
}

func (f *fakeLLM) StreamComplete(_ context.Context, _ ai.ChatConfig, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	f.mu.Lock()
	f.lastMessages = messages
	f.mu.Unlock()
	var full string
	for i, chunk := range f.chunks {
		if f.streamErr != nil && i == f.errAfter {
			return "", f.streamErr
		}
		if err := onChunk(chunk); err != nil {
			return "", err
		}
		full += chunk
	}
	if f.streamErr != nil && f.errAfter >= len(f.chunks) {
		return "", f.streamErr
	}
	return full, nil
}

func (f *fakeLLM) completeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completes
}

func (f *fakeLLM) messages() []ai.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMessages
}

type fakeRetriever struct {
	results []rag.Result
	err     error
	queries int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, conversationID uint, knowledgeBaseIDs []uint) ([]rag.Result, error) {
	f.queries++
	return f.results, f.err
}

type fakeFileStore struct {
	mu     sync.Mutex
	nextID int
	files  map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: map[string][]byte{}}
}

func (f *fakeFileStore) Save(entityType string, entityID uint, fileName string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rel := fileName
	f.files[rel] = data
	return rel, nil
}

func (f *fakeFileStore) Read(rel string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.files[rel], nil
}

func (f *fakeFileStore) Delete(rel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, rel)
	return nil
}

type fakeConversationFileStore struct {
	mu       sync.Mutex
	nextID   uint
	files    []model.ConversationFile
	statuses map[uint]string
}

func newFakeConversationFileStore() *fakeConversationFileStore {
	return &fakeConversationFileStore{statuses: map[uint]string{}}
}

func (f *fakeConversationFileStore) Create(file *model.ConversationFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	file.ID = f.nextID
	f.files = append(f.files, *file)
	return nil
}

func (f *fakeConversationFileStore) UpdateStatus(fileID uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[fileID] = status
	return nil
}

func (f *fakeConversationFileStore) ListByConversationID(conversationID uint) ([]model.ConversationFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ConversationFile
	for _, file := range f.files {
		if file.ConversationID == conversationID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeConversationFileStore) DeleteByConversationID(conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.ConversationFile
	for _, file := range f.files {
		if file.ConversationID != conversationID {
			kept = append(kept, file)
		}
	}
	f.files = kept
	return nil
}

type fakeIngestor struct {
	mu         sync.Mutex
	ingested   int
	ingestErr  error
	deletedCnv []uint
	deletedKB  []uint
}

func (f *fakeIngestor) IngestConversationFile(_ context.Context, file *model.ConversationFile, pages []docload.Page) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	if len(pages) == 0 {
		return 0, nil
	}
	f.ingested++
	return 1, nil
}

func (f *fakeIngestor) IngestKnowledgeBaseFile(_ context.Context, file *model.KnowledgeBaseFile, pages []docload.Page) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return 0, f.ingestErr
	}
	if len(pages) == 0 {
		return 0, nil
	}
	f.ingested++
	return 1, nil
}

func (f *fakeIngestor) DeleteFileChunks(_ context.Context, fileID uint, sourceType string) error {
	return nil
}

func (f *fakeIngestor) DeleteConversationChunks(_ context.Context, conversationID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedCnv = append(f.deletedCnv, conversationID)
	return nil
}

func (f *fakeIngestor) DeleteKnowledgeBaseChunks(_ context.Context, knowledgeBaseID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedKB = append(f.deletedKB, knowledgeBaseID)
	return nil
}

type fakeKnowledgeBaseStore struct {
	mu       sync.Mutex
	nextID   uint
	items    map[uint]*model.KnowledgeBase
	statuses map[uint][]string
}

func newFakeKnowledgeBaseStore() *fakeKnowledgeBaseStore {
	return &fakeKnowledgeBaseStore{items: map[uint]*model.KnowledgeBase{}, statuses: map[uint][]string{}}
}

func (f *fakeKnowledgeBaseStore) Create(kb *model.KnowledgeBase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	kb.ID = f.nextID
	cp := *kb
	f.items[kb.ID] = &cp
	return nil
}

func (f *fakeKnowledgeBaseStore) ListByUserID(userID uint) ([]model.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeBase
	for _, kb := range f.items {
		if kb.UserID == userID {
			out = append(out, *kb)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeBaseStore) GetByIDAndUserID(kbID, userID uint) (*model.KnowledgeBase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kb, ok := f.items[kbID]
	if !ok || kb.UserID != userID {
		return nil, nil
	}
	cp := *kb
	return &cp, nil
}

func (f *fakeKnowledgeBaseStore) UpdateStatus(kbID uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[kbID] = append(f.statuses[kbID], status)
	if kb, ok := f.items[kbID]; ok {
		kb.Status = status
	}
	return nil
}

func (f *fakeKnowledgeBaseStore) UpdateFileList(kbID uint, fileList string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kb, ok := f.items[kbID]; ok {
		kb.FileList = fileList
	}
	return nil
}

func (f *fakeKnowledgeBaseStore) DeleteByID(kbID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, kbID)
	return nil
}

func (f *fakeKnowledgeBaseStore) get(kbID uint) *model.KnowledgeBase {
	f.mu.Lock()
	defer f.mu.Unlock()
	kb, ok := f.items[kbID]
	if !ok {
		return nil
	}
	cp := *kb
	return &cp
}

func (f *fakeKnowledgeBaseStore) statusTrail(kbID uint) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statuses[kbID]...)
}

type fakeKnowledgeBaseFileStore struct {
	mu       sync.Mutex
	nextID   uint
	files    []model.KnowledgeBaseFile
	statuses map[uint]string
}

func newFakeKnowledgeBaseFileStore() *fakeKnowledgeBaseFileStore {
	return &fakeKnowledgeBaseFileStore{statuses: map[uint]string{}}
}

func (f *fakeKnowledgeBaseFileStore) Create(file *model.KnowledgeBaseFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	file.ID = f.nextID
	f.files = append(f.files, *file)
	return nil
}

func (f *fakeKnowledgeBaseFileStore) UpdateStatus(fileID uint, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[fileID] = status
	return nil
}

func (f *fakeKnowledgeBaseFileStore) ListByKnowledgeBaseID(kbID uint) ([]model.KnowledgeBaseFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.KnowledgeBaseFile
	for _, file := range f.files {
		if file.KnowledgeBaseID == kbID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeBaseFileStore) DeleteByKnowledgeBaseID(kbID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.KnowledgeBaseFile
	for _, file := range f.files {
		if file.KnowledgeBaseID != kbID {
			kept = append(kept, file)
		}
	}
	f.files = kept
	return nil
}

func (f *fakeKnowledgeBaseFileStore) status(fileID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[fileID]
}

type fakeLogStore struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]*model.ConversationLogSession
	rounds   []model.ConversationLogRound
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{sessions: map[uint]*model.ConversationLogSession{}}
}

func (f *fakeLogStore) GetOrCreateSession(conversationID, userID uint) (*model.ConversationLogSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[conversationID]; ok {
		cp := *s
		return &cp, nil
	}
	f.nextID++
	s := &model.ConversationLogSession{ID: f.nextID, ConversationID: conversationID, UserID: userID}
	f.sessions[conversationID] = s
	cp := *s
	return &cp, nil
}

func (f *fakeLogStore) CreateRound(round *model.ConversationLogRound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rounds = append(f.rounds, *round)
	return nil
}

func (f *fakeLogStore) UpdateSessionStats(sessionID uint, totalRounds int, hasErrors bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == sessionID {
			s.TotalRounds = totalRounds
			if hasErrors {
				s.HasErrors = true
			}
		}
	}
	return nil
}

func (f *fakeLogStore) GetSessionByConversationID(conversationID, userID uint) (*model.ConversationLogSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[conversationID]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeLogStore) ListRounds(sessionID uint) ([]model.ConversationLogRound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ConversationLogRound
	for _, r := range f.rounds {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}
