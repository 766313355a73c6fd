package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"creaturecore/internal/blob/core"
)

func TestMockPutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()

	info, err := s.Put(ctx, "journal/1-3.json", strings.NewReader(`[{"seq":1}]`), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "journal/1-3.json" || info.Size == 0 {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "journal/1-3.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != `[{"seq":1}]` {
		t.Fatalf("payload %q", body)
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type %q", got.ContentType)
	}
	if s.Driver() != core.DriverS3 {
		t.Fatalf("driver = %s", s.Driver())
	}
}

func TestMockPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}
}

func TestMockHeadListDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	for _, key := range []string{"journal/1.json", "journal/2.json", "snapshots/1.json"} {
		if _, err := s.Put(ctx, key, strings.NewReader("xy"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	info, err := s.Head(ctx, "journal/2.json")
	if err != nil || info.Size != 2 {
		t.Fatalf("head: %+v, %v", info, err)
	}
	infos, err := s.List(ctx, "journal/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "journal/1.json" {
		t.Fatalf("listing: %+v", infos)
	}
	if ok, err := s.Delete(ctx, "journal/1.json"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "journal/1.json"); err == nil {
		t.Fatal("deleted key resolved")
	}
}

func TestMockPresignURL(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	u, err := s.PresignURL(ctx, "journal/1.json", core.SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.Contains(u, "journal/1.json") || !strings.Contains(u, "X-Amz-Signature") {
		t.Fatalf("presigned url %q", u)
	}
	if _, err := s.PresignURL(ctx, "journal/1.json", core.SignedURLOptions{Method: "PUT"}); err == nil {
		t.Fatal("non-GET presign accepted")
	}
}
