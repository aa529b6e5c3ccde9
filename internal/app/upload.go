package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrFileTooLarge  = errors.New("file exceeds size limit")
	ErrFileType      = errors.New("file type not allowed")
	ErrTooManyFiles  = errors.New("too many files")
	ErrFileNameEmpty = errors.New("file name is empty")
	ErrFileEmpty     = errors.New("file is empty")
)

// UploadedFile is a transport-agnostic in-memory upload.
type UploadedFile struct {
	Name string
	Data []byte
}

// UploadPolicy bounds what the intake paths accept.
type UploadPolicy struct {
	MaxFileSize int64
	MaxFiles    int
	allowedExt  map[string]struct{}
}

func NewUploadPolicy(maxFileSize int64, maxFiles int, allowedExtensions []string) UploadPolicy {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return UploadPolicy{
		MaxFileSize: maxFileSize,
		MaxFiles:    maxFiles,
		allowedExt:  allowed,
	}
}

// CheckCount rejects batches beyond the per-request file limit.
func (p UploadPolicy) CheckCount(n int) error {
	if p.MaxFiles > 0 && n > p.MaxFiles {
		return fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, n, p.MaxFiles)
	}
	return nil
}

// Check validates one upload against the policy.
func (p UploadPolicy) Check(f UploadedFile) error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return ErrFileNameEmpty
	}
	ext := fileExtension(name)
	if _, ok := p.allowedExt[ext]; !ok {
		return fmt.Errorf("%w: .%s", ErrFileType, ext)
	}
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, name)
	}
	if p.MaxFileSize > 0 && int64(len(f.Data)) > p.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, name, len(f.Data), p.MaxFileSize)
	}
	return nil
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}
