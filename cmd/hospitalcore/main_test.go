package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalcore/internal/core"
	"hospitalcore/internal/platform/logger"
	"hospitalcore/pkg/domain"
)

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	t.Setenv("PORT", "")
	body := fmt.Sprintf(`http:
  addr: "127.0.0.1:0"
  shutdown_timeout: 2s
log:
  level: debug
persistence:
  driver: file
  path: %q
blob:
  driver: fs
  fs_root: %q
%s`, filepath.Join(dir, "hospital_data.json"), filepath.Join(dir, "blobs"), extra)
	path := filepath.Join(dir, "hospitalcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func seedDocument(t *testing.T, cfgPath string) {
	t.Helper()
	a := newApp()
	a.configFile = cfgPath
	a.logger = logger.Discard()
	require.NoError(t, a.initConfig(&cobra.Command{Use: "seed"}, nil))
	store, closeFn, err := core.OpenDocumentStore(context.Background(), a.storageConfig())
	require.NoError(t, err)
	defer func() { _ = closeFn() }()
	svc := core.NewService(core.NewCodec(store))
	require.True(t, svc.Load(context.Background()))
	svc.AddPatient(context.Background(), 1, "Alice")
	svc.AddPatient(context.Background(), 2, "Bob")
	svc.PushIncident(context.Background(), "flood")
	require.NoError(t, svc.LastPersistenceError())
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, newApp(), "version")
	require.NoError(t, err)
	assert.Equal(t, "hospitalcore dev\n", out)
}

func TestInvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")
	t.Setenv("HOSPITALCORE_PERSISTENCE_DRIVER", "floppy")

	_, _, err := run(t, newApp(), "--config", path, "snapshot", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
	assert.Contains(t, err.Error(), "unknown persistence driver")
}

func TestSnapshotShow(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	_, _, err := run(t, newApp(), "--config", path, "snapshot", "show")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoDocument)

	seedDocument(t, path)
	out, _, err := run(t, newApp(), "--config", path, "snapshot", "show")
	require.NoError(t, err)

	var doc domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, []domain.PatientRecord{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, doc.Patients)
	assert.Equal(t, []string{"flood"}, doc.Incidents)
	assert.NotEmpty(t, doc.Revision)
	assert.Contains(t, out, "\n  \"patients\": [")
}

func TestSnapshotExportAndList(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")
	seedDocument(t, path)

	out, _, err := run(t, newApp(), "--config", path, "snapshot", "export", "--key", "exports/patients.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "exported 2 records to exports/patients.csv")

	data, err := os.ReadFile(filepath.Join(dir, "blobs", "exports", "patients.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Alice\n2,Bob\n", string(data))

	_, _, err = run(t, newApp(), "--config", path, "snapshot", "export", "--key", "exports/patients.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out, _, err = run(t, newApp(), "--config", path, "snapshot", "exports")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "KEY"))
	assert.Contains(t, lines[1], "exports/patients.csv")
	assert.Contains(t, lines[1], " 2 ")
}

func TestServeLoadsStateAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, fmt.Sprintf("trace:\n  path: %q\n", filepath.Join(dir, "spans.jsonl")))
	seedDocument(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type probe struct {
		health int
		added  int
		err    error
	}
	probed := make(chan probe, 1)
	a := newApp()
	a.onListen = func(addr net.Addr) {
		base := "http://" + addr.String()
		var p probe
		client := &http.Client{
			Timeout:       5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		}
		resp, err := client.Get(base + "/healthz")
		if err == nil {
			p.health = resp.StatusCode
			_ = resp.Body.Close()
			resp, err = client.PostForm(base+"/add_patient", url.Values{"id": {"3"}, "name": {"Cara"}})
			if err == nil {
				p.added = resp.StatusCode
				_ = resp.Body.Close()
			}
		}
		p.err = err
		probed <- p
		cancel()
	}

	done := make(chan error, 1)
	go func() {
		root := newRootCmd(a)
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"--config", path, "serve"})
		done <- root.ExecuteContext(ctx)
	}()

	select {
	case p := <-probed:
		require.NoError(t, p.err)
		assert.Equal(t, http.StatusOK, p.health)
		assert.Equal(t, http.StatusFound, p.added)
	case <-time.After(10 * time.Second):
		t.Fatal("server never started")
	}
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}

	out, _, err := run(t, newApp(), "--config", path, "snapshot", "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"Cara"`)

	spans, err := os.ReadFile(filepath.Join(dir, "spans.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(spans), `"operation":"add_patient"`)
}
