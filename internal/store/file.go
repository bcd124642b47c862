package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/pageprobe/internal/format"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
)

// fileRecord is the on-disk JSON layout. The screenshot is written as a
// sibling .png and referenced by name.
type fileRecord struct {
	Status         probe.RunStatus `json:"status"`
	LastError      string          `json:"lastError,omitempty"`
	ScreenshotFile string          `json:"screenshotFile,omitempty"`
	Report         *probe.Report   `json:"report"`
}

// FileStore writes one JSON file (and optional PNG) per run into a directory.
type FileStore struct {
	log logrus.FieldLogger
	dir string
}

// NewFileStore creates a store writing into dir.
func NewFileStore(log logrus.FieldLogger, dir string) *FileStore {
	return &FileStore{
		log: log.WithField("component", "file_store"),
		dir: dir,
	}
}

func (s *FileStore) Start(_ context.Context) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating reports directory %s: %w", s.dir, err)
	}

	return nil
}

func (s *FileStore) Stop() error {
	return nil
}

// Save writes <dir>/<taskId>-<unixms>.json and, when a screenshot was
// captured, <dir>/<taskId>-<unixms>.png.
func (s *FileStore) Save(_ context.Context, result *probe.RunResult) error {
	if result == nil || result.Report == nil {
		return errNilResult
	}

	name := baseName(result.Report)
	report := *result.Report
	record := fileRecord{
		Status:    result.Status,
		LastError: result.LastError,
		Report:    &report,
	}

	if report.Screenshot != "" {
		png, err := base64.StdEncoding.DecodeString(report.Screenshot)
		if err != nil {
			return fmt.Errorf("decoding screenshot for %s: %w", report.TaskID, err)
		}

		record.ScreenshotFile = name + ".png"
		report.Screenshot = ""

		if err := s.write(record.ScreenshotFile, png); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report for %s: %w", report.TaskID, err)
	}

	return s.write(name+".json", data)
}

// Dir returns the target directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) write(name string, data []byte) error {
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	s.log.WithFields(logrus.Fields{
		"path": path,
		"size": format.Bytes(int64(len(data))),
	}).Debug("wrote report file")

	return nil
}

var _ Store = (*FileStore)(nil)
