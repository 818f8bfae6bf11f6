package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// EventLog is an append-only JSON-lines journal of settlement events,
// written alongside the Pebble records. It is an audit trail, not a
// recovery source: state rebuilds come from LoadState.
type EventLog interface {
	Append(ev types.Event) error
	Close() error
}

type NopEventLog struct{}

func NewNopEventLog() *NopEventLog            { return &NopEventLog{} }
func (*NopEventLog) Append(types.Event) error { return nil }
func (*NopEventLog) Close() error             { return nil }

type FileEventLog struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileEventLog(path string) (*FileEventLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &FileEventLog{f: f}, nil
}

func (l *FileEventLog) Append(ev types.Event) error {
	env, err := types.WrapEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to wrap event: %w", err)
	}
	line, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := fmt.Fprintln(l.f, string(line)); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (l *FileEventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

var _ EventLog = (*NopEventLog)(nil)
var _ EventLog = (*FileEventLog)(nil)
