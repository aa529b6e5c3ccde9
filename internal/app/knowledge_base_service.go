package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragchat/internal/model"
	"ragchat/internal/pkg/docload"
	"ragchat/pkg/logger"
	"ragchat/pkg/metrics"
)

var (
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")
	ErrNoFilesSaved          = errors.New("no files could be saved")
)

// KnowledgeBaseStore persists knowledge base rows.
type KnowledgeBaseStore interface {
	Create(kb *model.KnowledgeBase) error
	ListByUserID(userID uint) ([]model.KnowledgeBase, error)
	GetByIDAndUserID(kbID, userID uint) (*model.KnowledgeBase, error)
	UpdateStatus(kbID uint, status string) error
	UpdateFileList(kbID uint, fileList string) error
	DeleteByID(kbID uint) error
}

// KnowledgeBaseFileStore persists knowledge base file rows.
type KnowledgeBaseFileStore interface {
	Create(file *model.KnowledgeBaseFile) error
	UpdateStatus(fileID uint, status string) error
	ListByKnowledgeBaseID(kbID uint) ([]model.KnowledgeBaseFile, error)
	DeleteByKnowledgeBaseID(kbID uint) error
}

// KnowledgeBaseIngestor indexes and unindexes knowledge base chunks.
type KnowledgeBaseIngestor interface {
	IngestKnowledgeBaseFile(ctx context.Context, file *model.KnowledgeBaseFile, pages []docload.Page) (int, error)
	DeleteFileChunks(ctx context.Context, fileID uint, sourceType string) error
	DeleteKnowledgeBaseChunks(ctx context.Context, knowledgeBaseID uint) error
}

// KnowledgeBaseService manages knowledge bases and their async ingestion.
// Lifecycle: UPLOADING while files land, CHUNKING during ingestion,
// PUBLISHED once at least one file is indexed. Ingestion failures fall the
// base back to UPLOADING; if every file fails the base is removed.
type KnowledgeBaseService struct {
	kbRepo     KnowledgeBaseStore
	kbFileRepo KnowledgeBaseFileStore
	store      FileStore
	ingestor   KnowledgeBaseIngestor
	policy     UploadPolicy
	timeout    time.Duration
	log        *logger.Logger
}

func NewKnowledgeBaseService(
	kbRepo KnowledgeBaseStore,
	kbFileRepo KnowledgeBaseFileStore,
	store FileStore,
	ingestor KnowledgeBaseIngestor,
	policy UploadPolicy,
	log *logger.Logger,
) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		kbRepo:     kbRepo,
		kbFileRepo: kbFileRepo,
		store:      store,
		ingestor:   ingestor,
		policy:     policy,
		timeout:    10 * time.Minute,
		log:        log.Named("knowledge_base"),
	}
}

type CreateKnowledgeBaseInput struct {
	UserID      uint
	Name        string
	Description string
	Files       []UploadedFile
}

// CreateKnowledgeBaseResult reports the per-file outcome of a create. The
// base ingests in the background and is still UPLOADING here.
type CreateKnowledgeBaseResult struct {
	KnowledgeBase *model.KnowledgeBase `json:"knowledge_base"`
	SavedFiles    []model.SavedFile    `json:"saved_files"`
	Errors        []string             `json:"errors,omitempty"`
}

// Create stores the base and its files, then kicks off ingestion in the
// background. One bad file never blocks the others; its error lands in the
// result. Only when every file fails is the base removed again.
func (s *KnowledgeBaseService) Create(input CreateKnowledgeBaseInput) (*CreateKnowledgeBaseResult, error) {
	name := strings.TrimSpace(input.Name)
	if input.UserID == 0 || name == "" || len(input.Files) == 0 {
		return nil, ErrInvalidInput
	}
	if err := s.policy.CheckCount(len(input.Files)); err != nil {
		return nil, err
	}

	kb := &model.KnowledgeBase{
		UserID:      input.UserID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      model.KnowledgeBaseStatusUploading,
	}
	if err := s.kbRepo.Create(kb); err != nil {
		return nil, err
	}

	var files []model.KnowledgeBaseFile
	var fileErrs []string
	for _, f := range input.Files {
		if err := s.policy.Check(f); err != nil {
			fileErrs = append(fileErrs, err.Error())
			continue
		}
		rel, err := s.store.Save("knowledge_base", kb.ID, f.Name, f.Data)
		if err != nil {
			fileErrs = append(fileErrs, fmt.Sprintf("store %s failed: %v", f.Name, err))
			continue
		}
		file := model.KnowledgeBaseFile{
			KnowledgeBaseID: kb.ID,
			UserID:          input.UserID,
			FileName:        f.Name,
			FileType:        fileExtension(f.Name),
			FileSize:        int64(len(f.Data)),
			StoragePath:     rel,
			Status:          model.FileStatusUploaded,
		}
		if err := s.kbFileRepo.Create(&file); err != nil {
			_ = s.store.Delete(rel)
			fileErrs = append(fileErrs, fmt.Sprintf("save %s failed: %v", f.Name, err))
			continue
		}
		files = append(files, file)
	}

	if len(files) == 0 {
		s.rollbackCreate(kb.ID, nil)
		return nil, fmt.Errorf("%w: %s", ErrNoFilesSaved, strings.Join(fileErrs, "; "))
	}

	result := &CreateKnowledgeBaseResult{KnowledgeBase: kb, Errors: fileErrs}
	for _, file := range files {
		result.SavedFiles = append(result.SavedFiles, model.SavedFile{
			FileID:   file.ID,
			FileName: file.FileName,
			FileSize: file.FileSize,
		})
	}

	go s.process(kb.ID)
	return result, nil
}

func (s *KnowledgeBaseService) rollbackCreate(kbID uint, saved []model.KnowledgeBaseFile) {
	for _, f := range saved {
		_ = s.store.Delete(f.StoragePath)
	}
	_ = s.kbFileRepo.DeleteByKnowledgeBaseID(kbID)
	_ = s.kbRepo.DeleteByID(kbID)
}

// process ingests every file of the base. Runs in its own goroutine.
func (s *KnowledgeBaseService) process(kbID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.kbRepo.UpdateStatus(kbID, model.KnowledgeBaseStatusChunking); err != nil {
		s.log.Errorw("mark knowledge base chunking failed", "kb_id", kbID, "error", err)
		return
	}

	files, err := s.kbFileRepo.ListByKnowledgeBaseID(kbID)
	if err != nil {
		s.log.Errorw("list knowledge base files failed", "kb_id", kbID, "error", err)
		_ = s.kbRepo.UpdateStatus(kbID, model.KnowledgeBaseStatusUploading)
		return
	}

	var parsed []model.KnowledgeBaseFileRef
	for i := range files {
		if err := s.ingestFile(ctx, &files[i]); err != nil {
			s.log.Warnw("ingest knowledge base file failed",
				"kb_id", kbID,
				"file_id", files[i].ID,
				"file_name", files[i].FileName,
				"error", err,
			)
			continue
		}
		parsed = append(parsed, model.KnowledgeBaseFileRef{
			FileID:   files[i].ID,
			FileName: files[i].FileName,
		})
	}

	// Nothing usable: drop the base instead of publishing an empty one.
	if len(parsed) == 0 {
		s.log.Warnw("all knowledge base files failed, removing base", "kb_id", kbID)
		s.removeKnowledgeBase(ctx, kbID, files)
		return
	}

	kb := model.KnowledgeBase{}
	kb.SetFileRefs(parsed)
	if err := s.kbRepo.UpdateFileList(kbID, kb.FileList); err != nil {
		s.log.Errorw("update knowledge base file list failed", "kb_id", kbID, "error", err)
		_ = s.kbRepo.UpdateStatus(kbID, model.KnowledgeBaseStatusUploading)
		return
	}
	if err := s.kbRepo.UpdateStatus(kbID, model.KnowledgeBaseStatusPublished); err != nil {
		s.log.Errorw("publish knowledge base failed", "kb_id", kbID, "error", err)
		return
	}
	s.log.Infow("knowledge base published", "kb_id", kbID, "files", len(parsed))
}

func (s *KnowledgeBaseService) ingestFile(ctx context.Context, file *model.KnowledgeBaseFile) error {
	_ = s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusProcessing)

	data, err := s.store.Read(file.StoragePath)
	if err != nil {
		_ = s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	pages, err := docload.Load(file.FileName, data)
	if err != nil {
		_ = s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	chunks, err := s.ingestor.IngestKnowledgeBaseFile(ctx, file, pages)
	if err != nil {
		_ = s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return err
	}
	if chunks == 0 {
		_ = s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusFailed)
		return fmt.Errorf("no chunks extracted from %s", file.FileName)
	}
	metrics.AddChunksIndexed("knowledge_base", chunks)

	return s.kbFileRepo.UpdateStatus(file.ID, model.FileStatusParsed)
}

func (s *KnowledgeBaseService) List(userID uint) ([]model.KnowledgeBase, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.kbRepo.ListByUserID(userID)
}

type KnowledgeBaseDetail struct {
	KnowledgeBase model.KnowledgeBase       `json:"knowledge_base"`
	Files         []model.KnowledgeBaseFile `json:"files"`
}

func (s *KnowledgeBaseService) Get(userID, kbID uint) (*KnowledgeBaseDetail, error) {
	if userID == 0 || kbID == 0 {
		return nil, ErrInvalidInput
	}
	kb, err := s.kbRepo.GetByIDAndUserID(kbID, userID)
	if err != nil {
		return nil, err
	}
	if kb == nil {
		return nil, ErrKnowledgeBaseNotFound
	}
	files, err := s.kbFileRepo.ListByKnowledgeBaseID(kbID)
	if err != nil {
		return nil, err
	}
	return &KnowledgeBaseDetail{KnowledgeBase: *kb, Files: files}, nil
}

// Delete removes the base, its files and its index chunks. Chunk and
// storage cleanup are best effort; the database rows always go.
func (s *KnowledgeBaseService) Delete(ctx context.Context, userID, kbID uint) error {
	if userID == 0 || kbID == 0 {
		return ErrInvalidInput
	}
	kb, err := s.kbRepo.GetByIDAndUserID(kbID, userID)
	if err != nil {
		return err
	}
	if kb == nil {
		return ErrKnowledgeBaseNotFound
	}

	files, err := s.kbFileRepo.ListByKnowledgeBaseID(kbID)
	if err != nil {
		s.log.Warnw("list knowledge base files failed", "kb_id", kbID, "error", err)
	}
	s.removeKnowledgeBase(ctx, kbID, files)
	return nil
}

func (s *KnowledgeBaseService) removeKnowledgeBase(ctx context.Context, kbID uint, files []model.KnowledgeBaseFile) {
	if err := s.ingestor.DeleteKnowledgeBaseChunks(ctx, kbID); err != nil {
		s.log.Warnw("delete knowledge base chunks failed", "kb_id", kbID, "error", err)
	}
	for _, f := range files {
		if err := s.store.Delete(f.StoragePath); err != nil {
			s.log.Warnw("delete stored file failed", "file_id", f.ID, "error", err)
		}
	}
	if err := s.kbFileRepo.DeleteByKnowledgeBaseID(kbID); err != nil {
		s.log.Warnw("delete knowledge base file rows failed", "kb_id", kbID, "error", err)
	}
	if err := s.kbRepo.DeleteByID(kbID); err != nil {
		s.log.Warnw("delete knowledge base row failed", "kb_id", kbID, "error", err)
	}
}
