package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

const (
	ReportFileName       = "scan_report.json"
	SummaryFileName      = "summary.txt"
	ConversationFileName = "conversation.json"

	defaultUploadName = "document.pdf"
	maxUploadNameLen  = 128
)

// Paths lists every artifact location of one session.
type Paths struct {
	Root         string
	Report       string
	Summary      string
	Conversation string
}

// Store maps session ids to their storage roots.
type Store struct {
	fs         afero.Fs
	sessionDir string
	uploadDir  string
	validate   *validator.Validate
	logger     logger.ILogger
}

func NewStore(fs afero.Fs, sessionDir, uploadDir string, log logger.ILogger) *Store {
	return &Store{
		fs:         fs,
		sessionDir: filepath.Clean(sessionDir),
		uploadDir:  filepath.Clean(uploadDir),
		validate:   validator.New(),
		logger:     log,
	}
}

// ValidateID rejects anything that is not a canonical lowercase UUID.
// Ids become path segments, so nothing else may reach a filepath.Join.
func (s *Store) ValidateID(id string) error {
	if err := s.validate.Var(id, "required,len=36,uuid,lowercase"); err != nil {
		return apperror.InvalidSessionID(id, err)
	}
	return nil
}

func (s *Store) Paths(id string) (Paths, error) {
	if err := s.ValidateID(id); err != nil {
		return Paths{}, err
	}
	root := filepath.Join(s.sessionDir, id)
	return Paths{
		Root:         root,
		Report:       filepath.Join(root, ReportFileName),
		Summary:      filepath.Join(root, SummaryFileName),
		Conversation: filepath.Join(root, ConversationFileName),
	}, nil
}

// Ensure creates the session root if needed and returns it.
func (s *Store) Ensure(id string) (string, error) {
	paths, err := s.Paths(id)
	if err != nil {
		return "", err
	}

	exists, err := afero.DirExists(s.fs, paths.Root)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("stat session root: %w", err))
	}
	if exists {
		return paths.Root, nil
	}

	if err := s.fs.MkdirAll(paths.Root, 0o755); err != nil {
		return "", apperror.Internal(fmt.Errorf("create session root: %w", err))
	}
	s.logger.Info("SessionStore", "Session root created", map[string]interface{}{"session_id": id})
	return paths.Root, nil
}

func (s *Store) Exists(id string) (bool, error) {
	paths, err := s.Paths(id)
	if err != nil {
		return false, err
	}
	exists, err := afero.DirExists(s.fs, paths.Root)
	if err != nil {
		return false, apperror.Internal(fmt.Errorf("stat session root: %w", err))
	}
	return exists, nil
}

// SaveUpload streams an uploaded document to <uploadDir>/<id>/<safe name>.
func (s *Store) SaveUpload(id, fileName string, src io.Reader) (string, error) {
	if err := s.ValidateID(id); err != nil {
		return "", err
	}

	// One document per session: a resubmission replaces leftovers of an earlier attempt.
	dir := filepath.Join(s.uploadDir, id)
	if err := s.fs.RemoveAll(dir); err != nil {
		return "", apperror.Internal(fmt.Errorf("clear upload dir: %w", err))
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", apperror.Internal(fmt.Errorf("create upload dir: %w", err))
	}

	dst := filepath.Join(dir, SanitizeFileName(fileName))
	f, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("create upload: %w", err))
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		_ = s.fs.Remove(dst)
		return "", apperror.Internal(fmt.Errorf("write upload: %w", err))
	}
	if err := f.Close(); err != nil {
		return "", apperror.Internal(fmt.Errorf("close upload: %w", err))
	}

	if abs, err := filepath.Abs(dst); err == nil {
		return abs, nil
	}
	return dst, nil
}

// WriteFileAtomic writes through a temp file in the same directory and renames it into place.
// Upload returns the document stored for the session by SaveUpload.
func (s *Store) Upload(id string) (string, error) {
	if err := s.ValidateID(id); err != nil {
		return "", err
	}

	dir := filepath.Join(s.uploadDir, id)
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil && !os.IsNotExist(err) {
		return "", apperror.Internal(fmt.Errorf("list uploads: %w", err))
	}
	for _, e := range entries {
		if e.Mode().IsRegular() {
			path := filepath.Join(dir, e.Name())
			if abs, err := filepath.Abs(path); err == nil {
				return abs, nil
			}
			return path, nil
		}
	}
	return "", apperror.SessionConflict(id, "the scanned document is no longer stored; start a new session")
}

func (s *Store) WriteFileAtomic(path string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

func (s *Store) FileExists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

func (s *Store) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

func (s *Store) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

func (s *Store) Rename(oldPath, newPath string) error {
	return s.fs.Rename(oldPath, newPath)
}

func (s *Store) Remove(path string) error {
	return s.fs.Remove(path)
}

// SanitizeFileName reduces a client-supplied name to a safe base name.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxUploadNameLen {
		clean = clean[len(clean)-maxUploadNameLen:]
	}
	if clean == "" {
		return defaultUploadName
	}
	return clean
}
