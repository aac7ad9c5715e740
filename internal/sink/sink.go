// Package sink persists an activity list as the JSON document the
// presentation layer reads.
package sink

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"corossync/internal/components/assert"
	"corossync/internal/components/telemetry"
	"corossync/internal/failure"
	"corossync/internal/ingest"
	"corossync/internal/normalize"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
)

const (
	report_sink_write = "sink.write"
	report_sink_read  = "sink.read"
)

// FileSink replaces the document at path on every write, readers see either
// the previous document or the new one.
type FileSink struct {
	path string
	tel  telemetry.API
}

func NewFileSink(path string, tel telemetry.API) FileSink {
	assert.NotEmptyStr(path, "output path")
	assert.NotNil(tel, "tel")

	return FileSink{
		path: path,
		tel:  telemetry.NewScopedAPI("sink", tel),
	}
}

func (s FileSink) Path() string {
	return s.path
}

// Encode renders records the way Write stores them: a 4-space indented array
// in arrival order, without HTML escaping, ending in a newline.
func Encode(records normalize.ActivityList) ([]byte, error) {
	if records == nil {
		records = normalize.ActivityList{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(records)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the records of result.
func (s FileSink) Write(result ingest.RunResult) error {
	content, err := Encode(result.Records)
	if err != nil {
		s.tel.ReportBroken(report_sink_write, fmt.Errorf("json encode: %w", err))
		return failure.New(failure.WriteError, fmt.Errorf("encode: %w", err))
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		s.tel.ReportBroken(report_sink_write, err, dir)
		return failure.New(failure.WriteError, fmt.Errorf("create %s: %w", dir, err))
	}

	err = renameio.WriteFile(s.path, content, 0644)
	if err != nil {
		s.tel.ReportBroken(report_sink_write, err, s.path)
		return failure.New(failure.WriteError, fmt.Errorf("write %s: %w", s.path, err))
	}

	s.tel.ReportCount(report_sink_write, int64(len(result.Records)))
	return nil
}

// Read loads a document previously stored by Write.
func (s FileSink) Read() (normalize.ActivityList, error) {
	return Read(s.path)
}

func Read(path string) (normalize.ActivityList, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var records normalize.ActivityList
	err = json.Unmarshal(content, &records)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}
