package implementation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/repository/contract"
)

// FileQueueRepository persists unsent payloads as an append-only JSONL log,
// one payload per line. Append is a single O(1) write; eviction past the
// bound and DrainAll rewrite the file under the lock.
type FileQueueRepository struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

func NewFileQueueRepository(path string, maxEntries int) contract.IQueueRepository {
	return &FileQueueRepository{
		path:       path,
		maxEntries: maxEntries,
	}
}

func (r *FileQueueRepository) Append(payload dto.TrackPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal queued payload: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create queue directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open queue file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to queue file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close queue file: %w", err)
	}

	// Enforce the bound after the write so a single oversized burst still
	// keeps the newest entries.
	items, err := r.readAll()
	if err != nil {
		return err
	}
	if r.maxEntries > 0 && len(items) > r.maxEntries {
		return r.writeAll(items[len(items)-r.maxEntries:])
	}
	return nil
}

func (r *FileQueueRepository) DrainAll() ([]dto.TrackPayload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.readAll()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear queue file: %w", err)
	}
	return items, nil
}

func (r *FileQueueRepository) Len() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.readAll()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *FileQueueRepository) readAll() ([]dto.TrackPayload, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open queue file: %w", err)
	}
	defer f.Close()

	var items []dto.TrackPayload
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p dto.TrackPayload
		// Corrupt lines (partial writes from a crash) are skipped, not fatal.
		if err := json.Unmarshal(line, &p); err == nil {
			items = append(items, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan queue file: %w", err)
	}
	return items, nil
}

func (r *FileQueueRepository) writeAll(items []dto.TrackPayload) error {
	tmp := r.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open queue temp file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, p := range items {
		line, err := json.Marshal(p)
		if err != nil {
			continue
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush queue temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close queue temp file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to swap queue file: %w", err)
	}
	return nil
}
