package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"hospitalcore/internal/blob/core"
)

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil || !strings.Contains(err.Error(), "bucket required") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestNewAppliesEndpointAndCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "b",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Bucket() != "b" || s.Driver() != core.DriverS3 {
		t.Fatalf("unexpected store %+v", s)
	}
	opts := s.client.Options()
	if !opts.UsePathStyle || opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://localhost:9000" {
		t.Fatalf("client options not applied: %+v", opts)
	}
	if opts.Region != DefaultRegion {
		t.Fatalf("expected default region, got %q", opts.Region)
	}
}

func TestMockRoundTripPreservesMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	payload := []byte(`{"patients":[[1,"Alice"]]}`)
	if _, err := s.Put(ctx, "snapshots/state.json", bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"revision": "r-1"},
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := s.Get(ctx, "snapshots/state.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	body, _ := io.ReadAll(rc)
	if !bytes.Equal(body, payload) {
		t.Fatalf("body mismatch: %s", body)
	}
	if info.ContentType != "application/json" || info.Metadata["revision"] != "r-1" || info.Size != int64(len(payload)) {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestListCarriesMetadata(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	for _, key := range []string{"exports/b.csv", "exports/a.csv", "other/c.csv"} {
		if _, err := s.Put(ctx, key, strings.NewReader("id,name\n"), core.PutOptions{
			ContentType: "text/csv",
			Metadata:    map[string]string{"records": "0", "revision": "rev-" + key},
		}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "exports/a.csv" || infos[1].Key != "exports/b.csv" {
		t.Fatalf("unexpected listing %+v", infos)
	}
	for _, info := range infos {
		if info.ContentType != "text/csv" || info.Metadata["revision"] != "rev-"+info.Key || info.Metadata["records"] != "0" {
			t.Fatalf("listing lost metadata: %+v", info)
		}
	}
}

func TestMockDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if ok, err := s.Delete(ctx, "absent"); err != nil || ok {
		t.Fatalf("delete absent got %v %v", ok, err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := s.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("delete got %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "k"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	notFoundResponse := &awshttp.ResponseError{ResponseError: &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
		Err:      errors.New("not found"),
	}}
	serverError := &awshttp.ResponseError{ResponseError: &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusInternalServerError}},
		Err:      errors.New("boom"),
	}}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"no such key", &types.NoSuchKey{}, true},
		{"head not found", fmt.Errorf("wrapped: %w", &types.NotFound{}), true},
		{"http 404", notFoundResponse, true},
		{"http 500", serverError, false},
		{"plain", errors.New("dial tcp"), false},
	}
	for _, c := range cases {
		if got := isNotFound(c.err); got != c.want {
			t.Fatalf("%s: isNotFound = %v, want %v", c.name, got, c.want)
		}
	}
}
