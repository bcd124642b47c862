// Package taskdef loads browser task definitions from YAML files.
//
// A file holds either a single task at the top level or a list under "tasks",
// optionally with file-wide "defaults":
//
//	defaults:
//	  timeout_ms: 15000
//	tasks:
//	  - id: homepage
//	    url: https://example.com
//	    assertions:
//	      - { id: welcome, kind: textIncludes, value: Welcome }
package taskdef

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	errURLRequired     = errors.New("url is required")
	errURLNotAbsolute  = errors.New("url must be an absolute http(s) url")
	errNegativeTimeout = errors.New("timeout_ms must not be negative")
	errNoTasks         = errors.New("file defines no tasks")
	errDuplicateTaskID = errors.New("duplicate task id")
)

// Defaults are applied to every task in a file that leaves the field unset.
type Defaults struct {
	TimeoutMs             int   `yaml:"timeout_ms"`
	Headless              *bool `yaml:"headless"`
	FatalSameOriginErrors *bool `yaml:"fatal_same_origin_errors"`
}

// document is the on-disk shape. A single task is inlined at the top level.
type document struct {
	Defaults         Defaults            `yaml:"defaults"`
	Tasks            []*probe.TaskRecord `yaml:"tasks"`
	probe.TaskRecord `yaml:",inline"`
}

// Loader loads task definition files.
type Loader interface {
	LoadFile(path string) ([]*probe.TaskRecord, error)
	LoadDir(dir string) ([]*probe.TaskRecord, error)
	// Load accepts files and directories and rejects duplicate task ids.
	Load(paths ...string) ([]*probe.TaskRecord, error)
}

type loader struct {
	log logrus.FieldLogger
}

// NewLoader creates a new task definition loader.
func NewLoader(log logrus.FieldLogger) Loader {
	return &loader{
		log: log.WithField("component", "taskdef_loader"),
	}
}

// LoadFile loads and validates every task in a single file.
func (l *loader) LoadFile(path string) ([]*probe.TaskRecord, error) {
	l.log.WithField("path", path).Debug("loading task file")

	doc, err := l.loadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tasks from %s: %w", path, err)
	}

	tasks := doc.Tasks
	if len(tasks) == 0 {
		if doc.URL == "" && doc.ID == "" {
			return nil, fmt.Errorf("%s: %w", path, errNoTasks)
		}

		single := doc.TaskRecord
		tasks = []*probe.TaskRecord{&single}
	}

	for i, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%s: task at index %d is empty", path, i)
		}

		applyDefaults(task, doc.Defaults)

		if task.ID == "" {
			task.ID = uuid.NewString()
		}

		if err := Validate(task); err != nil {
			return nil, fmt.Errorf("validating task %s in %s: %w", task.ID, path, err)
		}
	}

	return tasks, nil
}

// LoadDir loads all *.yaml and *.yml files in dir. Invalid files are logged and skipped.
func (l *loader) LoadDir(dir string) ([]*probe.TaskRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !isTaskFile(entry.Name()) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	var tasks []*probe.TaskRecord

	for _, name := range names {
		loaded, err := l.LoadFile(filepath.Join(dir, name))
		if err != nil {
			l.log.WithError(err).WithField("file", name).Warn("failed to load task file, skipping")
			continue
		}

		tasks = append(tasks, loaded...)
	}

	l.log.WithFields(logrus.Fields{
		"dir":   dir,
		"files": len(names),
		"tasks": len(tasks),
	}).Debug("loaded task directory")

	return tasks, nil
}

func (l *loader) Load(paths ...string) ([]*probe.TaskRecord, error) {
	var tasks []*probe.TaskRecord

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		var loaded []*probe.TaskRecord
		if info.IsDir() {
			loaded, err = l.LoadDir(path)
		} else {
			loaded, err = l.LoadFile(path)
		}

		if err != nil {
			return nil, err
		}

		tasks = append(tasks, loaded...)
	}

	seen := make(map[string]struct{}, len(tasks))

	for _, task := range tasks {
		if _, ok := seen[task.ID]; ok {
			return nil, fmt.Errorf("%w: %s", errDuplicateTaskID, task.ID)
		}

		seen[task.ID] = struct{}{}
	}

	return tasks, nil
}

func (l *loader) loadFile(path string) (*document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: task files are chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	return &doc, nil
}

func applyDefaults(task *probe.TaskRecord, defaults Defaults) {
	if task.TimeoutMs == 0 {
		task.TimeoutMs = defaults.TimeoutMs
	}

	if task.Headless == nil {
		task.Headless = defaults.Headless
	}

	if task.FatalSameOriginErrors == nil {
		task.FatalSameOriginErrors = defaults.FatalSameOriginErrors
	}
}

// Validate checks the fields the runner relies on. Assertions are not
// validated; the runner skips malformed ones.
func Validate(task *probe.TaskRecord) error {
	if task.URL == "" {
		return errURLRequired
	}

	u, err := url.Parse(task.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errURLNotAbsolute, task.URL)
	}

	if task.TimeoutMs < 0 {
		return fmt.Errorf("%w: %d", errNegativeTimeout, task.TimeoutMs)
	}

	return nil
}

func isTaskFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return ext == ".yaml" || ext == ".yml"
}
