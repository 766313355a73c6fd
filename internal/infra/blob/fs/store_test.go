package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"creaturecore/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	info, err := s.Put(ctx, "journal/1-5.csv", strings.NewReader("seq,kind\n"), core.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"events": "4"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 9 {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "journal/1-5.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "seq,kind\n" {
		t.Fatalf("payload %q", body)
	}
	if got.ContentType != "text/csv" || got.Metadata["events"] != "4" || got.ETag != info.ETag {
		t.Fatalf("sidecar metadata lost: %+v", got)
	}
	if s.Driver() != core.DriverFilesystem {
		t.Fatalf("driver = %s", s.Driver())
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}
}

func TestKeySanitization(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestHeadDeleteList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, key := range []string{"journal/1.json", "journal/2.json", "other/3.json"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	if info, err := s.Head(ctx, "journal/1.json"); err != nil || info.Size != 1 {
		t.Fatalf("head: %+v, %v", info, err)
	}
	infos, err := s.List(ctx, "journal/")
	if err != nil || len(infos) != 2 {
		t.Fatalf("list: %d, %v", len(infos), err)
	}
	if ok, err := s.Delete(ctx, "journal/1.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "journal/1.json"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	infos, err = s.List(ctx, "journal/")
	if err != nil || len(infos) != 1 || infos[0].Key != "journal/2.json" {
		t.Fatalf("post-delete list: %+v, %v", infos, err)
	}
}

func TestPresignURL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u, err := s.PresignURL(ctx, "journal/1.json", core.SignedURLOptions{})
	if err != nil || !strings.HasPrefix(u, "http://local.blob/") {
		t.Fatalf("presign: %q, %v", u, err)
	}
	if _, err := s.PresignURL(ctx, "journal/1.json", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatal("non-GET presign accepted")
	}
}
