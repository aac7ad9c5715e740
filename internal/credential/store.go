package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"corossync/internal/components/assert"
	"corossync/internal/components/telemetry"
	"corossync/internal/failure"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

const (
	report_store_load = "store.load"
	report_store_save = "store.save"
)

// FileStore keeps a single credential in a file.
//
// Concurrent runs against the same file are not supported, writes are atomic so
// a reader never observes a partially written credential.
type FileStore struct {
	path   string
	parser Parser
	tel    telemetry.API
}

func NewFileStore(path string, parser Parser, tel telemetry.API) FileStore {
	assert.NotEmptyStr(path, "credential path")
	assert.NotNil(tel, "tel")

	return FileStore{
		path:   path,
		parser: parser,
		tel:    telemetry.NewScopedAPI("credential", tel),
	}
}

func (s FileStore) Path() string {
	return s.path
}

// Load reads and parses the stored credential. Artifacts that do not record
// when they were captured get the file's modification time.
func (s FileStore) Load() (Credential, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credential{}, failure.Newf(failure.CredentialMissing, "no credential at %s", s.path)
	}
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, s.path)
		return Credential{}, failure.New(failure.CredentialMissing, fmt.Errorf("stat %s: %w", s.path, err))
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, s.path)
		return Credential{}, failure.New(failure.CredentialMissing, fmt.Errorf("read %s: %w", s.path, err))
	}

	cred, err := s.parser.Parse(content, info.ModTime())
	if err != nil {
		s.tel.ReportWarning(report_store_load, err, s.path)
		return Credential{}, failure.New(failure.CredentialMalformed, fmt.Errorf("%s: %w", s.path, err))
	}

	s.tel.ReportDebug(report_store_load, cred.Scheme, cred.CapturedAt)
	return cred, nil
}

// Save replaces the stored credential with cred.
func (s FileStore) Save(cred Credential) error {
	err := cred.Validate()
	if err != nil {
		return failure.New(failure.CredentialMalformed, err)
	}

	content, err := json.MarshalIndent(document{
		Scheme:              cred.Scheme,
		PrimaryToken:        cred.PrimaryToken,
		AuxiliaryAttributes: cred.AuxiliaryAttributes,
		CapturedAt:          cred.CapturedAt,
	}, "", "  ")
	if err != nil {
		s.tel.ReportBroken(report_store_save, fmt.Errorf("json marshal: %w", err))
		return failure.New(failure.WriteError, err)
	}
	content = append(content, '\n')

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0o700)
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, dir)
		return failure.New(failure.WriteError, fmt.Errorf("create %s: %w", dir, err))
	}

	err = renameio.WriteFile(s.path, content, 0o600)
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, s.path)
		return failure.New(failure.WriteError, fmt.Errorf("write %s: %w", s.path, err))
	}

	return nil
}
