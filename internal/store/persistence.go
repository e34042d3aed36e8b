// Package store keeps a JSONL log of the notifications stackdraw has stacked,
// so a past stack can be rendered again later.
package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// SchemaVersion is the current log schema version.
const SchemaVersion = 1

// maxLineSize bounds one JSONL line; bodies are never that long.
const maxLineSize = 1024 * 1024

// Persistence defines the interface for notification log storage.
type Persistence interface {
	// Load reads all notifications from storage.
	Load() ([]*model.Notification, error)

	// Append adds a notification to storage.
	Append(n *model.Notification) error

	// AppendBatch adds multiple notifications with a single sync.
	AppendBatch(ns []*model.Notification) error

	// Rewrite replaces the entire log (used after trimming).
	Rewrite(ns []*model.Notification) error

	// Close releases file handles.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	SchemaVersion int   `json:"stackdraw_schema_version"`
	CreatedAt     int64 `json:"created_at"`
}

// ErrPersistenceClosed is returned when operations are attempted on a closed log.
var ErrPersistenceClosed = errors.New("persistence is closed")

// JSONLPersistence implements Persistence with one JSON object per line.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

var _ Persistence = (*JSONLPersistence)(nil)

// NewJSONLPersistence opens or creates the log at path.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return p, nil
}

// Path returns the log file path.
func (p *JSONLPersistence) Path() string {
	return p.path
}

func (p *JSONLPersistence) writeHeader() error {
	data, err := json.Marshal(schemaHeader{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all notifications from the log.
func (p *JSONLPersistence) Load() ([]*model.Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrPersistenceClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}
	ns, err := Decode(p.file)
	if err != nil {
		return ns, err
	}

	// Appends go to the end regardless (O_APPEND), but keep the offset sane.
	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return ns, err
	}
	return ns, nil
}

// Append adds a notification to the log.
func (p *JSONLPersistence) Append(n *model.Notification) error {
	return p.AppendBatch([]*model.Notification{n})
}

// AppendBatch adds notifications to the log.
func (p *JSONLPersistence) AppendBatch(ns []*model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrPersistenceClosed
	}
	if err := writeLines(p.file, ns); err != nil {
		return err
	}
	return p.file.Sync()
}

// Rewrite replaces the log with ns. The previous file is kept as a .bak
// until the new one is written.
func (p *JSONLPersistence) Rewrite(ns []*model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeader(); err != nil {
		return err
	}
	if err := writeLines(p.file, ns); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Trim keeps only the newest limit entries. 0 keeps everything.
func (p *JSONLPersistence) Trim(limit int) error {
	if limit <= 0 {
		return nil
	}
	ns, err := p.Load()
	if err != nil {
		return err
	}
	if len(ns) <= limit {
		return nil
	}
	return p.Rewrite(ns[len(ns)-limit:])
}

// Close releases the file handle.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// ReadFile reads a log without opening it for writing.
func ReadFile(path string) ([]*model.Notification, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads JSONL notifications from r. The header line is checked for a
// supported schema version; malformed lines are skipped.
func Decode(r io.Reader) ([]*model.Notification, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var ns []*model.Notification
	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if first {
			first = false
			var header schemaHeader
			if json.Unmarshal(line, &header) == nil && header.SchemaVersion > 0 {
				if header.SchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.SchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var n model.Notification
		if err := json.Unmarshal(line, &n); err != nil || n.ID == "" {
			continue
		}
		ns = append(ns, &n)
	}

	if err := scanner.Err(); err != nil {
		return ns, fmt.Errorf("error reading log: %w", err)
	}
	return ns, nil
}

func writeLines(w io.Writer, ns []*model.Notification) error {
	for _, n := range ns {
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
