package core

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"hospitalcore/internal/blob"
	"hospitalcore/internal/infra/persistence/blobdoc"
	"hospitalcore/internal/infra/persistence/file"
	"hospitalcore/internal/infra/persistence/memory"
	"hospitalcore/internal/infra/persistence/postgres"
	pgtestutil "hospitalcore/internal/infra/persistence/postgres/testutil"
	"hospitalcore/internal/infra/persistence/redis"
	"hospitalcore/internal/infra/persistence/sqlite"
	"hospitalcore/internal/state"
	"hospitalcore/pkg/domain"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	}
	return goredis.NewStatusResult("OK", nil)
}

type failingStore struct {
	readErr  error
	writeErr error
	writes   int
}

func (f *failingStore) Read(context.Context) ([]byte, error) { return nil, f.readErr }
func (f *failingStore) Write(context.Context, []byte) error {
	f.writes++
	return f.writeErr
}
func (f *failingStore) Driver() string { return "failing" }

func populate(s *state.State) {
	s.Records.Add(1, "Alice")
	s.Records.Add(2, "Bob")
	s.Records.Add(1, "Alice again")
	s.Requests.Enqueue("q1")
	s.Requests.Enqueue("q2")
	s.Incidents.Push("boiler")
	s.Incidents.Push("flood")
	s.Organization.AddStaff(domain.DepartmentMedical, "Dr. Grey")
	s.Organization.AddStaff(domain.DepartmentNursing, "Nurse Joy")
	s.Routes.AddRoute("A", "B")
	s.Routes.AddRoute("A", "C")
	s.Routes.AddRoute("D", "D")
	s.Emergency.Insert(3, "X")
	s.Emergency.Insert(13, "Y")
	s.Emergency.Insert(-4, "Neg")
}

func documentBackends(t *testing.T) map[string]func() domain.DocumentStore {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() domain.DocumentStore{
		"memory": func() domain.DocumentStore { return memory.NewStore() },
		"file": func() domain.DocumentStore {
			st, err := file.NewStore(filepath.Join(dir, "plain", "hospital_data.json"), false)
			if err != nil {
				t.Fatalf("file store: %v", err)
			}
			return st
		},
		"file-atomic": func() domain.DocumentStore {
			st, err := file.NewStore(filepath.Join(dir, "atomic", "hospital_data.json"), true)
			if err != nil {
				t.Fatalf("atomic file store: %v", err)
			}
			return st
		},
		"sqlite": func() domain.DocumentStore {
			st, err := sqlite.NewStore(context.Background(), filepath.Join(dir, "hospitalcore.db"))
			if err != nil {
				t.Fatalf("sqlite store: %v", err)
			}
			t.Cleanup(func() { _ = st.Close() })
			return st
		},
		"postgres": func() domain.DocumentStore {
			db, _ := pgtestutil.NewStubDB()
			restore := postgres.OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
			defer restore()
			st, err := postgres.NewStore(context.Background(), "")
			if err != nil {
				t.Fatalf("postgres store: %v", err)
			}
			return st
		},
		"redis": func() domain.DocumentStore { return redis.NewStore(&fakeRedis{}, "") },
		"blob-memory": func() domain.DocumentStore {
			return blobdoc.NewStore(blob.NewMemory(), "")
		},
		"blob-fs": func() domain.DocumentStore {
			fs, err := blob.NewFilesystem(filepath.Join(dir, "blobs"))
			if err != nil {
				t.Fatalf("fs blob: %v", err)
			}
			return blobdoc.NewStore(fs, "")
		},
		"blob-s3mock": func() domain.DocumentStore {
			return blobdoc.NewStore(blob.NewMockS3ForTests(), "")
		},
	}
}

func TestCodecRoundTripAcrossBackends(t *testing.T) {
	ctx := context.Background()
	for name, open := range documentBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open()
			src := state.New()
			codec := NewCodec(store)
			if !codec.Load(ctx, src) {
				t.Fatalf("initial load of empty store failed: %v", codec.LastError())
			}
			populate(src)
			if !codec.Save(ctx, src) {
				t.Fatalf("save failed: %v", codec.LastError())
			}
			// save twice to exercise overwrite
			if !codec.Save(ctx, src) {
				t.Fatalf("second save failed: %v", codec.LastError())
			}

			dst := state.New()
			reader := NewCodec(store)
			if !reader.Load(ctx, dst) {
				t.Fatalf("load failed: %v", reader.LastError())
			}
			if got, want := dst.ExportState(), src.ExportState(); !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
			if reader.Revision() == "" || reader.Revision() != codec.Revision() {
				t.Fatalf("revision not carried: saved %q loaded %q", codec.Revision(), reader.Revision())
			}
		})
	}
}

func TestCodecSaveBeforeLoadWritesNothing(t *testing.T) {
	store := &failingStore{}
	codec := NewCodec(store)
	if codec.Save(context.Background(), state.New()) {
		t.Fatalf("save before load should fail")
	}
	if !errors.Is(codec.LastError(), ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", codec.LastError())
	}
	if store.writes != 0 {
		t.Fatalf("expected no writes, got %d", store.writes)
	}
	if codec.Phase() != PhaseUninitialized {
		t.Fatalf("phase should stay uninitialized, got %s", codec.Phase())
	}
}

func TestCodecSecondLoadRejected(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(memory.NewStore())
	s := state.New()
	if !codec.Load(ctx, s) {
		t.Fatalf("first load: %v", codec.LastError())
	}
	if codec.Load(ctx, s) {
		t.Fatalf("second load should fail")
	}
	if !errors.Is(codec.LastError(), ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", codec.LastError())
	}
}

func TestCodecCorruptDocumentLeavesDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStoreWith([]byte(`{"patients": [[1, "Alice"]], "queue": [`))
	codec := NewCodec(store)
	s := state.New()
	if codec.Load(ctx, s) {
		t.Fatalf("corrupt load should fail")
	}
	if codec.Phase() != PhaseReady {
		t.Fatalf("failed load must still mark the codec ready, got %s", codec.Phase())
	}
	if got, want := s.ExportState(), state.New().ExportState(); !reflect.DeepEqual(got, want) {
		t.Fatalf("components mutated by failed load: %+v", got)
	}
	// a wrong-typed field also aborts before anything is applied
	s2 := state.New()
	bad := NewCodec(memory.NewStoreWith([]byte(`{"patients": [[1, "Alice"]], "hash_table": [[["x", "y"]]]}`)))
	if bad.Load(ctx, s2) {
		t.Fatalf("typed mismatch should fail")
	}
	if s2.Records.Len() != 0 {
		t.Fatalf("records applied despite decode failure")
	}
}

func TestCodecReadFailureReported(t *testing.T) {
	boom := errors.New("boom")
	codec := NewCodec(&failingStore{readErr: boom})
	if codec.Load(context.Background(), state.New()) {
		t.Fatalf("expected load failure")
	}
	if !errors.Is(codec.LastError(), boom) {
		t.Fatalf("expected wrapped read error, got %v", codec.LastError())
	}
}

func TestCodecWriteFailureReported(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := &failingStore{readErr: domain.ErrNoDocument, writeErr: boom}
	codec := NewCodec(store)
	s := state.New()
	if !codec.Load(ctx, s) {
		t.Fatalf("missing document should load clean: %v", codec.LastError())
	}
	if codec.Save(ctx, s) {
		t.Fatalf("expected save failure")
	}
	if !errors.Is(codec.LastError(), boom) {
		t.Fatalf("expected wrapped write error, got %v", codec.LastError())
	}
}

func TestCodecPreservesInconsistentBucketLayout(t *testing.T) {
	ctx := context.Background()
	// id 3 sits in bucket 0, which the hash function would never choose
	raw := `{"hash_table": [[[3, "Misplaced"]], [], [], [], [], [], [], [], [], []]}`
	store := memory.NewStoreWith([]byte(raw))
	codec := NewCodec(store)
	s := state.New()
	if !codec.Load(ctx, s) {
		t.Fatalf("load: %v", codec.LastError())
	}
	if _, ok := s.Emergency.Search(3); ok {
		t.Fatalf("search should look in bucket 3 only")
	}
	if !codec.Save(ctx, s) {
		t.Fatalf("save: %v", codec.LastError())
	}
	doc, err := Decode(mustRead(t, store))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.HashTable) != state.BucketCount || len(doc.HashTable[0]) != 1 || doc.HashTable[0][0].Name != "Misplaced" {
		t.Fatalf("bucket layout not preserved: %+v", doc.HashTable)
	}
}

func TestCodecMergesHierarchyAndGraph(t *testing.T) {
	ctx := context.Background()
	raw := `{
		"hierarchy": {"Hospital Director": {"staff": ["Boss"], "departments": {"Surgery Head": ["Dr. Cut"], "Radiology Head": ["Dr. Ray"]}}},
		"graph": {"A": ["B"], "B": ["A"], "Ghost": []}
	}`
	codec := NewCodec(memory.NewStoreWith([]byte(raw)))
	s := state.New()
	if !codec.Load(ctx, s) {
		t.Fatalf("load: %v", codec.LastError())
	}
	h := s.Organization.View()[domain.DirectorTitle]
	if len(h.Departments) != 3 {
		t.Fatalf("unknown department must not be added: %+v", h.Departments)
	}
	if !reflect.DeepEqual(h.Departments[domain.DepartmentSurgery], []string{"Dr. Cut"}) {
		t.Fatalf("surgery staff not loaded: %+v", h.Departments)
	}
	if !reflect.DeepEqual(h.Staff, []string{"Boss"}) {
		t.Fatalf("director staff not loaded: %+v", h.Staff)
	}
	if _, ok := s.Routes.View()["Ghost"]; ok {
		t.Fatalf("empty adjacency list should be skipped")
	}
	if s.Routes.Len() != 2 {
		t.Fatalf("expected 2 cities, got %d", s.Routes.Len())
	}
}

func TestCodecStampsTimestampAndRevision(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.FixedZone("X", 3600))
	store := memory.NewStore()
	codec := NewCodec(store,
		WithClock(func() time.Time { return fixed }),
		WithRevisionSource(func() string { return "rev-1" }),
	)
	s := state.New()
	codec.Load(ctx, s)
	if !codec.Save(ctx, s) {
		t.Fatalf("save: %v", codec.LastError())
	}
	data := mustRead(t, store)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.LastUpdated != "2024-05-01T09:00:00.123456Z" {
		t.Fatalf("unexpected timestamp %q", doc.LastUpdated)
	}
	if doc.Revision != "rev-1" || codec.Revision() != "rev-1" {
		t.Fatalf("unexpected revision doc=%q codec=%q", doc.Revision, codec.Revision())
	}
	for _, key := range []string{`"patients": []`, `"queue": []`, `"incidents": []`, `"graph": {}`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in encoded document:\n%s", key, data)
		}
	}
	if strings.Contains(string(data), "null") {
		t.Fatalf("encoded document must not contain null:\n%s", data)
	}
}

func TestCodecFileDocumentIsIndentedJSON(t *testing.T) {
	ctx := context.Background()
	t.Chdir(t.TempDir())
	st, err := file.NewStore(file.DefaultPath, false)
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	codec := NewCodec(st)
	s := state.New()
	codec.Load(ctx, s)
	s.Records.Add(7, "Ann")
	if !codec.Save(ctx, s) {
		t.Fatalf("save: %v", codec.LastError())
	}
	data, err := os.ReadFile(file.DefaultPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"patients\": [\n    [\n      7,\n      \"Ann\"\n    ]\n  ]") {
		t.Fatalf("unexpected layout:\n%s", data)
	}
}

func TestNoopObservabilityDefaults(_ *testing.T) {
	logger := noopLogger{}
	logger.Debug("debug", "key", "value")
	logger.Info("info", "key", "value")
	logger.Warn("warn", "key", "value")
	logger.Error("error", "key", "value")
	m := noopMetrics{}
	m.Observe(context.Background(), "op", true, time.Millisecond)
	m.ObserveSnapshot(context.Background(), SnapshotSave, false, time.Millisecond)
	m.SetComponentSize("records", 1)
	_, span := noopTracer{}.Start(context.Background(), "op")
	span.End(nil)
}

func TestPhaseString(t *testing.T) {
	if PhaseUninitialized.String() != "uninitialized" || PhaseReady.String() != "ready" {
		t.Fatalf("unexpected phase names")
	}
	if Phase(9).String() != "phase(9)" {
		t.Fatalf("unexpected fallback %s", Phase(9))
	}
}

func mustRead(t *testing.T, store domain.DocumentStore) []byte {
	t.Helper()
	data, err := store.Read(context.Background())
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	return data
}
