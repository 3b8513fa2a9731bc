package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"delivery-dashboard/internal/model"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore es un document store en memoria. Los filtros sólo soportan
// igualdad sobre campos string de primer nivel.
type memStore struct {
	mu      sync.Mutex
	order   map[string][]string
	docs    map[string]map[string]bson.Raw
	listErr error
}

func newMemStore() *memStore {
	return &memStore{
		order: make(map[string][]string),
		docs:  make(map[string]map[string]bson.Raw),
	}
}

func (s *memStore) put(t testing.TB, collection string, doc any) {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	id := model.DocumentID(raw)
	require.NotEmpty(t, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(collection, id, raw)
}

func (s *memStore) store(collection, id string, raw bson.Raw) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]bson.Raw)
	}
	if _, exists := s.docs[collection][id]; !exists {
		s.order[collection] = append(s.order[collection], id)
	}
	s.docs[collection][id] = raw
}

func (s *memStore) GetDocument(_ context.Context, collection, id string) (bson.Raw, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][id]
	return doc, ok, nil
}

func (s *memStore) ListDocuments(_ context.Context, collection string, filter bson.M) ([]bson.Raw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []bson.Raw
	for _, id := range s.order[collection] {
		doc := s.docs[collection][id]
		if matchesFilter(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *memStore) CountDocuments(ctx context.Context, collection string, filter bson.M) (int64, error) {
	docs, err := s.ListDocuments(ctx, collection, filter)
	return int64(len(docs)), err
}

func (s *memStore) SaveDocument(_ context.Context, collection, id string, doc any) (string, error) {
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(collection, id, raw)
	return id, nil
}

// UpdateDocument hace lo mismo que $set: sólo cambia los campos dados.
func (s *memStore) UpdateDocument(_ context.Context, collection, id string, fields bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.docs[collection][id]
	if !ok {
		return errDocNotFound
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for key, value := range fields {
		replaced := false
		for i := range doc {
			if doc[i].Key == key {
				doc[i].Value = value
				replaced = true
			}
		}
		if !replaced {
			doc = append(doc, bson.E{Key: key, Value: value})
		}
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	s.store(collection, id, updated)
	return nil
}

// gatedStore detiene la primera lectura de órdenes después de leerlas, hasta
// que se cierre release.
type gatedStore struct {
	*memStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(s *memStore) *gatedStore {
	g := &gatedStore{memStore: s, entered: make(chan struct{}), release: make(chan struct{})}
	g.armed.Store(true)
	return g
}

func (g *gatedStore) ListDocuments(ctx context.Context, collection string, filter bson.M) ([]bson.Raw, error) {
	docs, err := g.memStore.ListDocuments(ctx, collection, filter)
	if collection == model.CollectionOrders && g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return docs, err
}

func matchesFilter(doc bson.Raw, filter bson.M) bool {
	for key, want := range filter {
		got, ok := doc.Lookup(key).StringValueOK()
		if !ok || got != want {
			return false
		}
	}
	return true
}

var (
	errStoreDown   = errors.New("store down")
	errDocNotFound = errors.New("document not found")
)
