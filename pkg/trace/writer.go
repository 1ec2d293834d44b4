package trace

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// EventType enumerates JSONL trace event types.
type EventType string

const (
	EventRunStart       EventType = "run_start"
	EventRunComplete    EventType = "run_complete"
	EventClassified     EventType = "classified"
	EventFastPath       EventType = "fast_path"
	EventJuniorCall     EventType = "junior_call"
	EventSeniorCall     EventType = "senior_call"
	EventProbesRejected EventType = "probes_rejected"
	EventProbesExecuted EventType = "probes_executed"
	EventVerdict        EventType = "verdict"
	EventAuditSkipped   EventType = "audit_skipped"
)

// Genesis is the prev_hash of the first event in a file.
var Genesis = strings.Repeat("0", 64)

// Event is one line of the JSONL trace. PrevHash is the SHA-256 of the
// previous encoded line, chaining the file.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	PrevHash  string         `json:"prev_hash"`
	Data      map[string]any `json:"data,omitempty"`
}

// Writer appends hash-chained events to a JSONL stream. It is safe for
// concurrent use by several runs sharing one file.
type Writer struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	prevHash string
}

// NewWriter writes events to w, starting a fresh chain.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, prevHash: Genesis}
}

// NewFileWriter appends to a JSONL file, continuing any chain already in it.
func NewFileWriter(path string) (*Writer, error) {
	prev := Genesis
	if existing, err := os.Open(path); err == nil {
		res, verr := Verify(existing)
		existing.Close()
		if verr != nil {
			return nil, fmt.Errorf("read trace file: %w", verr)
		}
		if !res.Valid {
			return nil, fmt.Errorf("trace file %s has a broken chain: %s", path, res.Error)
		}
		prev = res.LastHash
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &Writer{w: f, closer: f, prevHash: prev}, nil
}

// Emit writes a single event for runID.
func (tw *Writer) Emit(runID string, eventType EventType, data map[string]any) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	evt := Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		PrevHash:  tw.prevHash,
		Data:      data,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal trace event: %w", err)
	}
	if _, err := tw.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write trace event: %w", err)
	}
	tw.prevHash = hashLine(line)
	return nil
}

// Close closes the underlying file, if the writer owns one.
func (tw *Writer) Close() error {
	if tw.closer == nil {
		return nil
	}
	return tw.closer.Close()
}

func hashLine(line []byte) string {
	h := sha256.Sum256(bytes.TrimRight(line, "\n"))
	return hex.EncodeToString(h[:])
}
