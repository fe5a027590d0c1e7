package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	saved map[string]string
	err   error
}

func (f *fakeStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[name] = string(b)
	return "mem/" + name, nil
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		username, filename string
		want               string
		wantErr            bool
	}{
		{"alice", "photo.png", "alice.png", false},
		{"alice", "archive.tar.gz", "alice.gz", false},
		{"alice", "README", "alice.README", false},
		{"alice", ".bashrc", "alice.bashrc", false},
		{"alice", "trailing.", "", true},
		{"alice", "", "", true},
		{"alice", "../etc/passwd", "", true},
		{"alice", `dir\file.txt`, "", true},
		{"", "photo.png", "", true},
	}

	for _, tt := range tests {
		got, err := ObjectName(tt.username, tt.filename)
		if tt.wantErr {
			assert.ErrorIs(t, err, common.ErrorValidation, "%q", tt.filename)
			continue
		}
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got)
	}
}

func TestUpload_SavesUnderUserName(t *testing.T) {
	st := &fakeStorage{}
	svc := NewUploadService(st, nil)

	loc, err := svc.Upload(context.Background(), "alice", "cv.pdf", strings.NewReader("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "mem/alice.pdf", loc)
	assert.Equal(t, "pdf", st.saved["alice.pdf"])
}

func TestUpload_StorageErrors(t *testing.T) {
	svc := NewUploadService(&fakeStorage{err: errors.New("disk full")}, nil)
	_, err := svc.Upload(context.Background(), "alice", "cv.pdf", strings.NewReader("pdf"))
	assert.ErrorIs(t, err, common.ErrorInternal)

	svc = NewUploadService(&fakeStorage{err: common.ErrorValidation}, nil)
	_, err = svc.Upload(context.Background(), "alice", "cv.pdf", strings.NewReader("pdf"))
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestUpload_LocalOverwrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	st, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	svc := NewUploadService(st, nil)

	_, err = svc.Upload(context.Background(), "alice", "a.txt", strings.NewReader("one"))
	require.NoError(t, err)
	loc, err := svc.Upload(context.Background(), "alice", "b.txt", strings.NewReader("two"))
	require.NoError(t, err)
	assert.Equal(t, filepath.ToSlash(filepath.Join(dir, "alice.txt")), loc)

	b, err := os.ReadFile(filepath.Join(dir, "alice.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
