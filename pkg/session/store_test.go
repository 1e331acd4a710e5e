package session

import (
	"path/filepath"
	"strings"
	"testing"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c"

func newTestStore(t *testing.T) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewStore(fs, "/data/sessions", "/data/uploads", logger.NewNopLogger()), fs
}

func TestValidateID(t *testing.T) {
	store, _ := newTestStore(t)

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"canonical uuid", testID, false},
		{"empty", "", true},
		{"traversal", "../../etc/passwd", true},
		{"traversal padded to length", "../../../../../../../../../etc/pass", true},
		{"too short", "3f1c2a9e", true},
		{"slash inside", "3f1c2a9e-5b7d-4e8a-9c10/2d3e4f5a6b7c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ValidateID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	store, fs := newTestStore(t)

	exists, err := store.Exists(testID)
	require.NoError(t, err)
	assert.False(t, exists)

	root, err := store.Ensure(testID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/sessions", testID), root)

	again, err := store.Ensure(testID)
	require.NoError(t, err)
	assert.Equal(t, root, again)

	isDir, err := afero.DirExists(fs, root)
	require.NoError(t, err)
	assert.True(t, isDir)

	exists, err = store.Exists(testID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestEnsureRejectsInvalidIDWithoutTouchingDisk(t *testing.T) {
	store, fs := newTestStore(t)

	_, err := store.Ensure("../escape")
	require.Error(t, err)

	entries, _ := afero.ReadDir(fs, "/data")
	assert.Empty(t, entries)
}

func TestWriteFileAtomic(t *testing.T) {
	store, fs := newTestStore(t)
	root, err := store.Ensure(testID)
	require.NoError(t, err)

	path := filepath.Join(root, SummaryFileName)
	require.NoError(t, store.WriteFileAtomic(path, []byte("first")))
	require.NoError(t, store.WriteFileAtomic(path, []byte("second")))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := afero.ReadDir(fs, root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestSaveUpload(t *testing.T) {
	store, fs := newTestStore(t)

	path, err := store.SaveUpload(testID, "../../evil report.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, "evil_report.pdf", filepath.Base(path))
	assert.Contains(t, path, filepath.Join("data", "uploads", testID))

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestUpload(t *testing.T) {
	t.Run("returns the saved document", func(t *testing.T) {
		store, _ := newTestStore(t)
		saved, err := store.SaveUpload(testID, "doc.pdf", strings.NewReader("%PDF"))
		require.NoError(t, err)

		got, err := store.Upload(testID)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("resubmission replaces the earlier document", func(t *testing.T) {
		store, fs := newTestStore(t)
		_, err := store.SaveUpload(testID, "first.pdf", strings.NewReader("one"))
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, "/data/uploads/"+testID+"/first.pdf.report.json", []byte("{}"), 0o644))

		saved, err := store.SaveUpload(testID, "second.pdf", strings.NewReader("two"))
		require.NoError(t, err)

		entries, err := afero.ReadDir(fs, "/data/uploads/"+testID)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		got, err := store.Upload(testID)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
	})

	t.Run("nothing stored", func(t *testing.T) {
		store, _ := newTestStore(t)
		_, err := store.Upload(testID)
		assert.Equal(t, apperror.KindSessionConflict, apperror.KindOf(err))
	})
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":         "report.pdf",
		"..":                 defaultUploadName,
		"":                   defaultUploadName,
		`C:\Users\me\a b.pdf`: "a_b.pdf",
		".hidden.pdf":        "hidden.pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFileName(in), "input %q", in)
	}
}
