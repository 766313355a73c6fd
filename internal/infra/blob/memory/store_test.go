package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"creaturecore/internal/blob/core"
)

func TestPutGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	info, err := s.Put(ctx, "journal/1-9.json", strings.NewReader("[]"), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"events": "0"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 2 || info.ContentType != "application/json" {
		t.Fatalf("put info: %+v", info)
	}

	got, rc, err := s.Get(ctx, "journal/1-9.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "[]" || got.Metadata["events"] != "0" {
		t.Fatalf("get returned %q %+v", body, got)
	}
	if s.Driver() != core.DriverMemory {
		t.Fatalf("driver = %s", s.Driver())
	}
}

func TestPutIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "k", strings.NewReader("a"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("b"), core.PutOptions{}); err == nil {
		t.Fatal("overwrite accepted")
	}
}

func TestHeadDeleteAndMissing(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Put(ctx, "k", strings.NewReader("abc"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := s.Head(ctx, "k")
	if err != nil || info.Size != 3 {
		t.Fatalf("head: %+v, %v", info, err)
	}
	if ok, err := s.Delete(ctx, "k"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := s.Delete(ctx, "k"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "k"); err == nil {
		t.Fatal("deleted key resolved")
	}
	if _, _, err := s.Get(ctx, "k"); err == nil {
		t.Fatal("deleted key readable")
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, key := range []string{"journal/2.json", "journal/1.json", "snapshots/1.json"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "journal/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "journal/1.json" || infos[1].Key != "journal/2.json" {
		t.Fatalf("listing: %+v", infos)
	}
	all, err := s.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("full listing: %d, %v", len(all), err)
	}
}

func TestPresignUnsupported(t *testing.T) {
	_, err := New().PresignURL(context.Background(), "k", core.SignedURLOptions{})
	if !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
