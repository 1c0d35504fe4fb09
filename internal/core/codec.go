package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hospitalcore/internal/state"
	"hospitalcore/pkg/domain"
)

// Phase is the codec lifecycle state.
type Phase int

const (
	// PhaseUninitialized holds until the first Load call.
	PhaseUninitialized Phase = iota
	// PhaseReady holds after Load, whatever its outcome.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	// ErrNotLoaded rejects Save before Load so an empty process cannot
	// overwrite a document it has not read.
	ErrNotLoaded = errors.New("codec: save before load")
	// ErrAlreadyLoaded rejects a second Load.
	ErrAlreadyLoaded = errors.New("codec: already loaded")
)

// TimestampLayout is the last_updated format.
const TimestampLayout = time.RFC3339Nano

// Codec serializes the aggregate state into one document and restores it.
// Failures are logged and reported as false; they never panic and never
// leave a component partially applied.
type Codec struct {
	store   domain.DocumentStore
	logger  Logger
	metrics MetricsRecorder
	now     func() time.Time
	newRev  func() string

	mu       sync.Mutex
	phase    Phase
	lastErr  error
	revision string
}

// CodecOption customizes a Codec.
type CodecOption func(*Codec)

// WithCodecLogger sets the logger failures are reported to.
func WithCodecLogger(l Logger) CodecOption {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCodecMetrics sets the recorder snapshots are reported to.
func WithCodecMetrics(m MetricsRecorder) CodecOption {
	return func(c *Codec) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRevisionSource overrides revision generation.
func WithRevisionSource(fn func() string) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.newRev = fn
		}
	}
}

// NewCodec returns a codec over store in PhaseUninitialized.
func NewCodec(store domain.DocumentStore, opts ...CodecOption) *Codec {
	c := &Codec{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		now:     time.Now,
		newRev:  newRevision,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func newRevision() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Phase reports the lifecycle state.
func (c *Codec) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastError returns the error of the most recent Save or Load, nil on success.
func (c *Codec) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Revision returns the revision of the last document saved or loaded.
func (c *Codec) Revision() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Driver names the backing document store.
func (c *Codec) Driver() string { return c.store.Driver() }

// Save writes the full state as one document, replacing whatever was stored.
func (c *Codec) Save(ctx context.Context, s *state.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	err := c.save(ctx, s)
	c.finish(ctx, SnapshotSave, start, err)
	return err == nil
}

func (c *Codec) save(ctx context.Context, s *state.State) error {
	if c.phase != PhaseReady {
		return ErrNotLoaded
	}
	doc := s.ExportState()
	doc.LastUpdated = c.now().UTC().Format(TimestampLayout)
	doc.Revision = c.newRev()
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := c.store.Write(ctx, data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	c.revision = doc.Revision
	c.logger.Debug("snapshot saved", "driver", c.store.Driver(), "revision", doc.Revision, "bytes", len(data))
	return nil
}

// Load reads the stored document and applies it to s, which must be at its
// defaults. A missing document is a successful load of nothing. The document
// is decoded in full before any component is touched.
func (c *Codec) Load(ctx context.Context, s *state.State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()
	if c.phase == PhaseReady {
		c.finish(ctx, SnapshotLoad, start, ErrAlreadyLoaded)
		return false
	}
	c.phase = PhaseReady
	err := c.load(ctx, s)
	c.finish(ctx, SnapshotLoad, start, err)
	return err == nil
}

func (c *Codec) load(ctx context.Context, s *state.State) error {
	data, err := c.store.Read(ctx)
	if errors.Is(err, domain.ErrNoDocument) {
		c.logger.Info("no persisted document, starting empty", "driver", c.store.Driver())
		return nil
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	doc, err := Decode(data)
	if err != nil {
		return err
	}
	report := s.ImportState(doc)
	if len(report.IgnoredDepartments) > 0 {
		c.logger.Warn("ignored unknown departments", "departments", report.IgnoredDepartments)
	}
	if report.DroppedEntries > 0 {
		c.logger.Warn("dropped entries beyond bucket count", "entries", report.DroppedEntries, "buckets", state.BucketCount)
	}
	c.revision = doc.Revision
	c.logger.Info("snapshot loaded", "driver", c.store.Driver(), "revision", doc.Revision, "last_updated", doc.LastUpdated)
	return nil
}

func (c *Codec) finish(ctx context.Context, kind string, start time.Time, err error) {
	c.lastErr = err
	c.metrics.ObserveSnapshot(ctx, kind, err == nil, time.Since(start))
	if err != nil {
		c.logger.Error("snapshot "+kind+" failed", "driver", c.store.Driver(), "error", err)
	}
}

// Encode renders a document as indented JSON. Nil slices and maps are
// written as empty values, never null.
func Encode(doc domain.Document) ([]byte, error) {
	normalize(&doc)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses a document. Unknown fields are ignored and missing fields
// decode as empty.
func Decode(data []byte) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func normalize(doc *domain.Document) {
	if doc.Patients == nil {
		doc.Patients = []domain.PatientRecord{}
	}
	if doc.Queue == nil {
		doc.Queue = []string{}
	}
	if doc.Incidents == nil {
		doc.Incidents = []string{}
	}
	if doc.Hierarchy == nil {
		doc.Hierarchy = domain.Hierarchy{}
	}
	if doc.Graph == nil {
		doc.Graph = map[string][]string{}
	}
	if doc.HashTable == nil {
		doc.HashTable = [][]domain.HashEntry{}
	}
	for i, bucket := range doc.HashTable {
		if bucket == nil {
			doc.HashTable[i] = []domain.HashEntry{}
		}
	}
}
