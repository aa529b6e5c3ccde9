package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadPolicyCheck(t *testing.T) {
	policy := NewUploadPolicy(100, 3, []string{"pdf", "TXT", ".md"})

	assert.NoError(t, policy.Check(UploadedFile{Name: "a.pdf", Data: []byte("x")}))
	assert.NoError(t, policy.Check(UploadedFile{Name: "A.TXT", Data: []byte("x")}))
	assert.NoError(t, policy.Check(UploadedFile{Name: "notes.md", Data: []byte("x")}))

	assert.ErrorIs(t, policy.Check(UploadedFile{Name: "a.exe", Data: []byte("x")}), ErrFileType)
	assert.ErrorIs(t, policy.Check(UploadedFile{Name: "", Data: []byte("x")}), ErrFileNameEmpty)
	assert.ErrorIs(t, policy.Check(UploadedFile{Name: "a.pdf", Data: make([]byte, 101)}), ErrFileTooLarge)
	assert.ErrorIs(t, policy.Check(UploadedFile{Name: "empty.txt"}), ErrFileEmpty)
	assert.ErrorIs(t, policy.Check(UploadedFile{Name: "empty.txt", Data: []byte{}}), ErrFileEmpty)
}

func TestUploadPolicyCheckCount(t *testing.T) {
	policy := NewUploadPolicy(100, 2, []string{"pdf"})
	assert.NoError(t, policy.CheckCount(2))
	assert.ErrorIs(t, policy.CheckCount(3), ErrTooManyFiles)

	unlimited := NewUploadPolicy(100, 0, []string{"pdf"})
	assert.NoError(t, unlimited.CheckCount(1000))
}
