package orderview

import (
	"context"
	"log/slog"
	"time"

	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/resolver"
)

// RefResolver resuelve un lote de referencias; devuelve un resultado por
// referencia en el mismo orden.
type RefResolver interface {
	ResolveAll(ctx context.Context, refs []model.Ref) []resolver.Result
}

type Hydrator struct {
	resolver RefResolver
	logger   *slog.Logger
}

func NewHydrator(logger *slog.Logger, r RefResolver) *Hydrator {
	return &Hydrator{
		resolver: r,
		logger:   logger.With(slog.String("component", "orderview")),
	}
}

func (h *Hydrator) Hydrate(ctx context.Context, now time.Time, o model.Order) OrderView {
	return h.HydrateAll(ctx, now, []model.Order{o})[0]
}

// HydrateAll resuelve todas las referencias del lote en una sola pasada y
// construye una vista por orden, en el mismo orden.
func (h *Hydrator) HydrateAll(ctx context.Context, now time.Time, orders []model.Order) []OrderView {
	var refs []model.Ref
	for _, o := range orders {
		refs = append(refs, o.Customer, o.DeliveryPerson)
		for _, item := range o.Items {
			refs = append(refs, item.Product)
		}
	}
	results := h.resolver.ResolveAll(ctx, refs)

	views := make([]OrderView, 0, len(orders))
	next := 0
	for _, o := range orders {
		in := Resolved{Products: make(map[string]model.Product, len(o.Items))}

		var c model.Customer
		if h.decode(o.ID, results[next], &c) {
			in.Customer = &c
		}
		var d model.DeliveryPerson
		if h.decode(o.ID, results[next+1], &d) {
			in.DeliveryPerson = &d
		}
		next += 2

		for range o.Items {
			var p model.Product
			res := results[next]
			if h.decode(o.ID, res, &p) {
				in.Products[res.Input.Path()] = p
			}
			next++
		}

		views = append(views, Build(now, o, in))
	}
	return views
}

func (h *Hydrator) decode(orderID string, res resolver.Result, v any) bool {
	if !res.Resolved() {
		return false
	}
	if err := res.Decode(v); err != nil {
		h.logger.Warn("failed to decode referenced document",
			slog.String("order", orderID),
			slog.String("ref", res.Input.String()),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
