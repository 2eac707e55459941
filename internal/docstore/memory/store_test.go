package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
)

func TestStore_GetMissing(t *testing.T) {
	s := NewStore()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_PutIsFullReplace(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", docstore.Document{"a": 1, "stale": "yes"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", docstore.Document{"a": 2}); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["stale"]; ok {
		t.Fatal("stale field survived a full replace")
	}
}

func TestStore_MergeCreatesAndUpdates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Merge(ctx, "k", docstore.Fields{"a": "one"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge(ctx, "k", docstore.Fields{"b": "two"}); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if doc["a"] != "one" || doc["b"] != "two" {
		t.Fatalf("doc = %v, want merged fields", doc)
	}
}

func TestStore_AppendToArray(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.AppendToArray(ctx, "k", "items", "x"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("append to missing doc: err = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "k", docstore.Document{"items": []any{}}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"x", "y"} {
		if err := s.AppendToArray(ctx, "k", "items", v); err != nil {
			t.Fatal(err)
		}
	}

	doc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	items, _ := doc["items"].([]any)
	if len(items) != 2 || items[0] != "x" || items[1] != "y" {
		t.Fatalf("items = %v, want [x y] in append order", items)
	}
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var seen []docstore.Document
	unsub, err := s.Subscribe(ctx, "k", func(doc docstore.Document) {
		seen = append(seen, doc)
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Put(ctx, "k", docstore.Document{"n": 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Merge(ctx, "k", docstore.Fields{"n": 2}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("notifications = %d, want 2", len(seen))
	}

	unsub()
	if err := s.Put(ctx, "k", docstore.Document{"n": 3}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("notifications after unsubscribe = %d, want still 2", len(seen))
	}
}

func TestStore_ReadsDoNotAliasStoredState(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, "k", docstore.Document{"items": []any{"x"}}); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	doc["items"] = []any{"tampered"}

	fresh, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	items, _ := fresh["items"].([]any)
	if len(items) != 1 || items[0] != "x" {
		t.Fatalf("stored state aliased by a reader: %v", items)
	}
}
