package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/store"
)

// StdinAdapter reads notifications from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads notifications from standard input.
// Supports dunstctl history output and a JSON array of notifications.
func (a *StdinAdapter) Import(ctx context.Context) ([]*model.Notification, error) {
	scanner := bufio.NewScanner(a.reader)
	const maxSize = 10 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxSize)

	var data []byte
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data = append(data, scanner.Bytes()...)
		data = append(data, '\n')
	}

	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{
			Source:  "stdin",
			Message: "failed to read stdin",
			Err:     err,
		}
	}

	return Parse(data, "stdin")
}

// FileAdapter reads notifications from a JSON or YAML file.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates a FileAdapter for path.
func NewFileAdapter(path string) *FileAdapter {
	return &FileAdapter{path: path}
}

// Name returns the adapter identifier.
func (a *FileAdapter) Name() string {
	return "file"
}

// Import reads the file. Files ending in .yaml or .yml hold a YAML list of
// notifications, .jsonl files are notification logs written by serve;
// anything else is parsed like stdin.
func (a *FileAdapter) Import(ctx context.Context) ([]*model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, &AdapterError{Source: a.path, Message: "failed to read file", Err: err}
	}

	switch strings.ToLower(filepath.Ext(a.path)) {
	case ".yaml", ".yml":
		var entries []Entry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, &AdapterError{Source: a.path, Message: "failed to parse YAML input", Err: err}
		}
		return convertEntries(entries, "file"), nil
	case ".jsonl":
		ns, err := store.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &AdapterError{Source: a.path, Message: "failed to read notification log", Err: err}
		}
		return ns, nil
	default:
		return Parse(data, "file")
	}
}

// Parse decodes dunstctl history output or a JSON array of notifications.
// Empty input yields no notifications.
func Parse(data []byte, source string) ([]*model.Notification, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	notifications, err := ParseDunstHistory(data)
	if err == nil && len(notifications) > 0 {
		return notifications, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &AdapterError{
			Source:  source,
			Message: "failed to parse JSON input",
			Err:     err,
		}
	}

	return convertEntries(entries, source), nil
}

// Entry is a notification in the plain JSON/YAML input format.
type Entry struct {
	ID             string       `json:"id,omitempty" yaml:"id,omitempty"`
	AppName        string       `json:"app_name" yaml:"app_name"`
	Summary        string       `json:"summary" yaml:"summary"`
	Body           string       `json:"body" yaml:"body"`
	Timestamp      int64        `json:"timestamp" yaml:"timestamp"`
	Urgency        int          `json:"urgency" yaml:"urgency"`
	Category       string       `json:"category,omitempty" yaml:"category,omitempty"`
	IconName       string       `json:"icon_name,omitempty" yaml:"icon_name,omitempty"`
	IconPath       string       `json:"icon_path,omitempty" yaml:"icon_path,omitempty"`
	IconPosition   string       `json:"icon_position,omitempty" yaml:"icon_position,omitempty"`
	Progress       *int         `json:"progress,omitempty" yaml:"progress,omitempty"`
	Colors         model.Colors `json:"colors" yaml:"colors"`
	Format         string       `json:"format,omitempty" yaml:"format,omitempty"`
	StackTag       string       `json:"stack_tag,omitempty" yaml:"stack_tag,omitempty"`
	DuplicateCount int          `json:"duplicate_count,omitempty" yaml:"duplicate_count,omitempty"`
}

func convertEntries(entries []Entry, source string) []*model.Notification {
	notifications := make([]*model.Notification, 0, len(entries))
	for _, entry := range entries {
		n, err := convertEntry(entry, source)
		if err != nil {
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications
}

func convertEntry(entry Entry, source string) (*model.Notification, error) {
	n, err := model.NewNotification(source)
	if err != nil {
		return nil, err
	}
	if entry.ID != "" {
		n.ID = entry.ID
	}

	if entry.Timestamp > 0 {
		n.Timestamp = entry.Timestamp
	} else {
		n.Timestamp = time.Now().Unix()
	}

	n.AppName = sanitizeString(entry.AppName)
	n.Summary = sanitizeString(entry.Summary)
	n.Body = sanitizeString(entry.Body)
	n.SetUrgency(entry.Urgency)
	n.Category = entry.Category
	n.IconName = entry.IconName
	n.IconPath = entry.IconPath
	n.Colors = entry.Colors
	n.Format = entry.Format
	n.StackTag = entry.StackTag
	n.DuplicateCount = max(entry.DuplicateCount, 0)

	if pos, err := model.ParseIconPosition(entry.IconPosition); err == nil {
		n.IconPosition = pos
	}
	if entry.Progress != nil {
		n.Progress = clampProgress(*entry.Progress)
	}

	return n, nil
}

// clampProgress maps negative values to "no progress" and caps at 100.
func clampProgress(p int) int {
	if p < 0 {
		return model.NoProgress
	}
	return min(p, 100)
}
