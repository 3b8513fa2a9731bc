// Package resolver resuelve referencias (colección + id) contra el document
// store. Una referencia rota nunca hace fallar al llamador: siempre se
// devuelve un Result, resuelto o con el motivo del fallo.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"delivery-dashboard/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 8
	DefaultTimeout     = 3 * time.Second
)

var ErrUnresolved = errors.New("referencia no resuelta")

// Getter es la parte del document store que usa el resolver.
type Getter interface {
	GetDocument(ctx context.Context, collection, id string) (bson.Raw, bool, error)
}

type Cache interface {
	Get(key string) (bson.Raw, bool)
	Set(key string, value bson.Raw)
}

type Reason uint8

const (
	Resolved Reason = iota
	Missing
	Malformed
	NotFound
	StoreError
)

func (r Reason) String() string {
	switch r {
	case Resolved:
		return "resolved"
	case Missing:
		return "missing"
	case Malformed:
		return "malformed"
	case NotFound:
		return "not_found"
	case StoreError:
		return "store_error"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

type Result struct {
	Input  model.Ref
	Doc    bson.Raw
	Reason Reason
	Err    error // sólo para StoreError
}

func (r Result) Resolved() bool { return r.Reason == Resolved }

// Ref reconstruye la referencia a partir del documento resuelto.
func (r Result) Ref() model.Ref {
	if !r.Resolved() {
		return r.Input
	}
	return model.NewRef(r.Input.Collection, model.DocumentID(r.Doc))
}

// Decode decodifica el documento resuelto en v.
func (r Result) Decode(v any) error {
	if !r.Resolved() {
		return fmt.Errorf("%w: %s (%s)", ErrUnresolved, r.Input, r.Reason)
	}
	return bson.Unmarshal(r.Doc, v)
}

type Resolver struct {
	store       Getter
	cache       Cache
	logger      *slog.Logger
	timeout     time.Duration
	concurrency int
}

type Option func(*Resolver)

func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func New(logger *slog.Logger, store Getter, opts ...Option) *Resolver {
	r := &Resolver{
		store:       store,
		logger:      logger.With(slog.String("component", "resolver")),
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(ctx context.Context, ref model.Ref) Result {
	res := r.resolve(ctx, ref)
	resolveOutcomes.WithLabelValues(res.Reason.String()).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, ref model.Ref) Result {
	switch ref.State {
	case model.FieldAbsent:
		return Result{Input: ref, Reason: Missing}
	case model.FieldMalformed:
		r.logger.Warn("malformed reference", slog.String("ref", ref.Raw))
		return Result{Input: ref, Reason: Malformed}
	}

	key := ref.Path()
	if r.cache != nil {
		if doc, ok := r.cache.Get(key); ok {
			return Result{Input: ref, Doc: doc}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc, found, err := r.store.GetDocument(ctx, ref.Collection, ref.ID)
	if err != nil {
		r.logger.Error("failed to resolve reference", slog.String("ref", key), slog.Any("error", err))
		return Result{Input: ref, Reason: StoreError, Err: err}
	}
	if !found {
		r.logger.Warn("referenced document not found", slog.String("ref", key))
		return Result{Input: ref, Reason: NotFound}
	}

	if r.cache != nil {
		r.cache.Set(key, doc)
	}
	return Result{Input: ref, Doc: doc}
}

// ResolveAll devuelve exactamente un Result por referencia, en el mismo
// orden. Las referencias repetidas se consultan una sola vez y un fallo
// individual no cancela a las demás.
func (r *Resolver) ResolveAll(ctx context.Context, refs []model.Ref) []Result {
	results := make([]Result, len(refs))
	pending := make(map[string][]int)
	var order []string

	for i, ref := range refs {
		if !ref.Valid() {
			results[i] = r.Resolve(ctx, ref)
			continue
		}
		key := ref.Path()
		if _, seen := pending[key]; !seen {
			order = append(order, key)
		}
		pending[key] = append(pending[key], i)
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, key := range order {
		idxs := pending[key]
		g.Go(func() error {
			res := r.Resolve(ctx, refs[idxs[0]])
			for _, i := range idxs {
				res.Input = refs[i]
				results[i] = res
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
