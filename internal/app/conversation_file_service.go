package app

import (
	"context"
	"fmt"

	"ragchat/internal/model"
	"ragchat/internal/pkg/docload"
	"ragchat/pkg/logger"
	"ragchat/pkg/metrics"
)

// ConversationFileStore persists conversation file rows.
type ConversationFileStore interface {
	Create(file *model.ConversationFile) error
	UpdateStatus(fileID uint, status string) error
	ListByConversationID(conversationID uint) ([]model.ConversationFile, error)
	DeleteByConversationID(conversationID uint) error
}

// FileStore keeps raw upload bytes.
type FileStore interface {
	Save(entityType string, entityID uint, fileName string, data []byte) (string, error)
	Read(rel string) ([]byte, error)
	Delete(rel string) error
}

// ConversationIngestor indexes conversation file chunks.
type ConversationIngestor interface {
	IngestConversationFile(ctx context.Context, file *model.ConversationFile, pages []docload.Page) (int, error)
	DeleteConversationChunks(ctx context.Context, conversationID uint) error
}

// ConversationFileService handles uploads attached to chat rounds.
type ConversationFileService struct {
	fileRepo ConversationFileStore
	store    FileStore
	ingestor ConversationIngestor
	policy   UploadPolicy
	log      *logger.Logger
}

func NewConversationFileService(
	fileRepo ConversationFileStore,
	store FileStore,
	ingestor ConversationIngestor,
	policy UploadPolicy,
	log *logger.Logger,
) *ConversationFileService {
	return &ConversationFileService{
		fileRepo: fileRepo,
		store:    store,
		ingestor: ingestor,
		policy:   policy,
		log:      log.Named("conversation_files"),
	}
}

// SaveFiles validates and stores each upload. Per-file failures go into the
// returned error list; one bad file never blocks the others.
func (s *ConversationFileService) SaveFiles(conversationID, userID uint, files []UploadedFile) ([]model.ConversationFile, []string) {
	var saved []model.ConversationFile
	var errs []string

	if err := s.policy.CheckCount(len(files)); err != nil {
		return nil, []string{err.Error()}
	}

	for _, f := range files {
		if err := s.policy.Check(f); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		rel, err := s.store.Save("conversation", conversationID, f.Name, f.Data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("store %s failed: %v", f.Name, err))
			continue
		}
		file := model.ConversationFile{
			ConversationID: conversationID,
			UserID:         userID,
			FileName:       f.Name,
			FileType:       fileExtension(f.Name),
			FileSize:       int64(len(f.Data)),
			StoragePath:    rel,
			Status:         model.FileStatusUploaded,
		}
		if err := s.fileRepo.Create(&file); err != nil {
			_ = s.store.Delete(rel)
			errs = append(errs, fmt.Sprintf("save %s failed: %v", f.Name, err))
			continue
		}
		saved = append(saved, file)
	}
	return saved, errs
}

// IngestFile extracts and indexes one saved file. Failures mark the file
// failed but the chat round continues without it.
func (s *ConversationFileService) IngestFile(ctx context.Context, file *model.ConversationFile) error {
	_ = s.fileRepo.UpdateStatus(file.ID, model.FileStatusProcessing)

	data, err := s.store.Read(file.StoragePath)
	if err != nil {
		_ = s.fileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	pages, err := docload.Load(file.FileName, data)
	if err != nil {
		_ = s.fileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	chunks, err := s.ingestor.IngestConversationFile(ctx, file, pages)
	if err != nil {
		_ = s.fileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	metrics.AddChunksIndexed("conversation_file", chunks)

	if err := s.fileRepo.UpdateStatus(file.ID, model.FileStatusParsed); err != nil {
		return err
	}
	s.log.Infow("conversation file indexed",
		"file_id", file.ID,
		"conversation_id", file.ConversationID,
		"chunks", chunks,
	)
	return nil
}

func (s *ConversationFileService) ListFiles(conversationID uint) ([]model.ConversationFile, error) {
	return s.fileRepo.ListByConversationID(conversationID)
}

// Cleanup removes everything a deleted conversation left behind: index
// chunks, stored bytes and file rows. Each step is best effort.
func (s *ConversationFileService) Cleanup(ctx context.Context, conversationID uint) {
	if err := s.ingestor.DeleteConversationChunks(ctx, conversationID); err != nil {
		s.log.Warnw("delete conversation chunks failed", "conversation_id", conversationID, "error", err)
	}
	files, err := s.fileRepo.ListByConversationID(conversationID)
	if err != nil {
		s.log.Warnw("list conversation files failed", "conversation_id", conversationID, "error", err)
	}
	for _, f := range files {
		if err := s.store.Delete(f.StoragePath); err != nil {
			s.log.Warnw("delete stored file failed", "file_id", f.ID, "error", err)
		}
	}
	if err := s.fileRepo.DeleteByConversationID(conversationID); err != nil {
		s.log.Warnw("delete conversation file rows failed", "conversation_id", conversationID, "error", err)
	}
}
