// Package export renders patient records as CSV and stores the result as
// immutable artifacts in a blob store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"hospitalcore/internal/blob"
	"hospitalcore/pkg/domain"
)

// ContentTypeCSV is the content type of patient exports.
const ContentTypeCSV = "text/csv"

// DefaultPrefix is where artifacts are stored when no key is given.
const DefaultPrefix = "exports/"

// Metadata keys attached to stored artifacts.
const (
	MetaRevision = "revision"
	MetaRecords  = "records"
)

// ErrKeyTaken is returned when an artifact already exists at the requested key.
var ErrKeyTaken = errors.New("export key already exists")

// PatientsCSV writes the id,name header and one row per record in order.
func PatientsCSV(w io.Writer, records []domain.PatientRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "name"}); err != nil {
		return err
	}
	for _, rec := range records {
		if err := writer.Write([]string{strconv.Itoa(rec.ID), rec.Name}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Artifact describes one stored export.
type Artifact struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Revision    string    `json:"revision,omitempty"`
	Records     int       `json:"records"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exporter stores rendered exports in a blob store.
type Exporter struct {
	blobs blob.Store
	now   func() time.Time
}

// NewExporter returns an exporter writing to blobs.
func NewExporter(blobs blob.Store) *Exporter {
	return &Exporter{blobs: blobs, now: time.Now}
}

// DefaultKey derives a timestamped key under DefaultPrefix.
func (e *Exporter) DefaultKey() string {
	return DefaultPrefix + "patients-" + e.now().UTC().Format("20060102T150405.000Z") + ".csv"
}

// ExportPatients renders records and stores them at key. Existing keys are
// never overwritten.
func (e *Exporter) ExportPatients(ctx context.Context, key string, records []domain.PatientRecord, revision string) (Artifact, error) {
	if strings.TrimSpace(key) == "" {
		key = e.DefaultKey()
	}
	var buf bytes.Buffer
	if err := PatientsCSV(&buf, records); err != nil {
		return Artifact{}, fmt.Errorf("render csv: %w", err)
	}
	meta := map[string]string{MetaRecords: strconv.Itoa(len(records))}
	if revision != "" {
		meta[MetaRevision] = revision
	}
	info, err := e.blobs.Put(ctx, key, &buf, blob.PutOptions{ContentType: ContentTypeCSV, Metadata: meta})
	if errors.Is(err, blob.ErrExists) {
		return Artifact{}, fmt.Errorf("%s: %w", key, ErrKeyTaken)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("store export: %w", err)
	}
	return artifactFrom(info), nil
}

// List returns stored artifacts under prefix, ordered by key.
func (e *Exporter) List(ctx context.Context, prefix string) ([]Artifact, error) {
	infos, err := e.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	out := make([]Artifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, artifactFrom(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func artifactFrom(info blob.Info) Artifact {
	a := Artifact{
		Key:         info.Key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		CreatedAt:   info.LastModified,
	}
	if info.Metadata != nil {
		a.Revision = info.Metadata[MetaRevision]
		a.Records, _ = strconv.Atoi(info.Metadata[MetaRecords])
	}
	return a
}
