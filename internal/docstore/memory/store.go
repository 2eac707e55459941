// Package memory provides an in-process docstore.Store. It backs single
// device deployments and tests; change notifications are delivered
// synchronously to subscribers.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NkululekoMemela/turfkings-fc-web-sub000/internal/docstore"
)

// Store is an in-memory document store safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[string]docstore.Document
	subs map[string]map[int]docstore.OnChange
	next int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs: make(map[string]docstore.Document),
		subs: make(map[string]map[int]docstore.OnChange),
	}
}

func (s *Store) Get(ctx context.Context, key string) (docstore.Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()

	if !ok {
		return nil, docstore.ErrNotFound
	}
	return deepCopy(doc)
}

func (s *Store) Put(ctx context.Context, key string, doc docstore.Document) error {
	stored, err := deepCopy(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.docs[key] = stored
	s.mu.Unlock()

	s.notify(key)
	return nil
}

func (s *Store) Merge(ctx context.Context, key string, fields docstore.Fields) error {
	s.mu.Lock()
	doc, ok := s.docs[key]
	if !ok {
		doc = make(docstore.Document, len(fields))
		s.docs[key] = doc
	}
	for k, v := range fields {
		copied, err := deepCopyValue(v)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		doc[k] = copied
	}
	s.mu.Unlock()

	s.notify(key)
	return nil
}

func (s *Store) AppendToArray(ctx context.Context, key string, field string, value any) error {
	s.mu.Lock()
	doc, ok := s.docs[key]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}

	copied, err := deepCopyValue(value)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	arr, _ := doc[field].([]any)
	doc[field] = append(arr, copied)
	s.mu.Unlock()

	s.notify(key)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, key string, fn docstore.OnChange) (docstore.Unsubscribe, error) {
	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]docstore.OnChange)
	}
	id := s.next
	s.next++
	s.subs[key][id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
	}, nil
}

// notify delivers the current document to every subscriber of key. Callbacks
// run outside the lock against an independent copy.
func (s *Store) notify(key string) {
	s.mu.RLock()
	doc, ok := s.docs[key]
	var copied docstore.Document
	if ok {
		var err error
		if copied, err = deepCopy(doc); err != nil {
			ok = false
		}
	}
	var fns []docstore.OnChange
	for _, fn := range s.subs[key] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	if !ok || len(fns) == 0 {
		return
	}

	for _, fn := range fns {
		fn(copied)
	}
}

// deepCopy clones a document through a JSON round trip so callers can never
// alias stored state.
func deepCopy(doc docstore.Document) (docstore.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}

	var out docstore.Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	return out, nil
}

func deepCopyValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("copy value: %w", err)
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("copy value: %w", err)
	}
	return out, nil
}
