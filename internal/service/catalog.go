package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"delivery-dashboard/internal/dto"
	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/promotion"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
)

func matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// DeliveryPeople lista repartidores. Disponible significa ShippingScore == 0.
func (s *DashboardService) DeliveryPeople(ctx context.Context, q dto.DeliveryPeopleQuery) ([]dto.DeliveryPersonResponse, error) {
	people, err := listAs[model.DeliveryPerson](ctx, s, model.CollectionUsers, bson.M{"role": model.RoleDeliveryMan})
	if err != nil {
		return nil, err
	}

	out := make([]dto.DeliveryPersonResponse, 0, len(people))
	for _, p := range people {
		availability := AvailabilityBusy
		if p.Available() {
			availability = AvailabilityAvailable
		}
		if q.Availability != "" && q.Availability != availability {
			continue
		}
		if !matches(q.Search, p.FullName(), p.Email, p.Phone) {
			continue
		}
		out = append(out, dto.DeliveryPersonResponse{
			ID:            p.ID,
			Name:          p.FullName(),
			Email:         p.Email,
			Phone:         p.Phone,
			PhotoURL:      p.PhotoURL,
			ShippingScore: p.ShippingScore,
			Availability:  availability,
		})
	}
	slices.SortStableFunc(out, func(a, b dto.DeliveryPersonResponse) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Customers lista los clientes con lo que gastó cada uno en órdenes.
func (s *DashboardService) Customers(ctx context.Context, q dto.CustomerQuery) ([]dto.CustomerResponse, error) {
	customers, err := listAs[model.Customer](ctx, s, model.CollectionUsers, bson.M{"role": model.RoleClient})
	if err != nil {
		return nil, err
	}
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}

	spent := make(map[string]decimal.Decimal)
	count := make(map[string]int)
	for _, o := range orders {
		if !o.Customer.Valid() {
			continue
		}
		spent[o.Customer.ID] = spent[o.Customer.ID].Add(decimal.NewFromFloat(o.TotalAmount))
		count[o.Customer.ID]++
	}

	out := make([]dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		if !matches(q.Search, c.FullName(), c.Email, c.Phone) {
			continue
		}
		out = append(out, dto.CustomerResponse{
			ID:         c.ID,
			Name:       c.FullName(),
			Email:      c.Email,
			Phone:      c.Phone,
			PhotoURL:   c.PhotoURL,
			OrderCount: count[c.ID],
			TotalSpent: spent[c.ID].Round(2),
		})
	}
	slices.SortStableFunc(out, func(a, b dto.CustomerResponse) int {
		return cmp.Or(b.TotalSpent.Cmp(a.TotalSpent), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *DashboardService) Zones(ctx context.Context, q dto.ZoneQuery) ([]model.Zone, error) {
	zones, err := listAs[model.Zone](ctx, s, model.CollectionZones, bson.M{})
	if err != nil {
		return nil, err
	}
	zones = slices.DeleteFunc(zones, func(z model.Zone) bool {
		if q.IsOpen != nil && z.IsOpen != *q.IsOpen {
			return true
		}
		return !matches(q.Search, z.Name, z.ZIPCode)
	})
	slices.SortStableFunc(zones, func(a, b model.Zone) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return zones, nil
}

func (s *DashboardService) promotions(ctx context.Context) ([]model.Promotion, error) {
	return listAs[model.Promotion](ctx, s, model.CollectionPromotions, bson.M{})
}

// Promotions ordena por fecha de creación, descendente salvo order=asc.
func (s *DashboardService) Promotions(ctx context.Context, q dto.PromotionQuery) ([]model.Promotion, error) {
	promos, err := s.promotions(ctx)
	if err != nil {
		return nil, err
	}
	return promotion.SortByCreation(promotion.Search(promos, q.Search), q.Order == "asc"), nil
}

func (s *DashboardService) ActivePromotions(ctx context.Context) ([]model.Promotion, error) {
	promos, err := s.promotions(ctx)
	if err != nil {
		return nil, err
	}
	return promotion.Active(promos, s.now()), nil
}

// CreatePromotion genera el código, guarda la promoción y publica el evento.
// Un fallo al publicar no deshace la creación.
func (s *DashboardService) CreatePromotion(ctx context.Context, req dto.CreatePromotionRequest, actorID string) (model.Promotion, error) {
	p, err := s.lifecycle.Prepare(ctx, promotion.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		DateStart:   req.DateStart,
		DateEnd:     req.DateEnd,
		MaxNumber:   req.MaxNumber,
		Percentage:  req.Percentage,
		Image:       req.Image,
	}, actorID)
	if err != nil {
		return model.Promotion{}, err
	}

	id, err := s.store.SaveDocument(ctx, model.CollectionPromotions, p.ID, p)
	if err != nil {
		return model.Promotion{}, fmt.Errorf("failed to save promotion: %w", err)
	}
	p.ID = id

	s.logger.Info("promotion created",
		slog.String("id", p.ID),
		slog.String("code", p.Code),
		slog.String("created_by", actorID),
	)

	if s.events != nil {
		if err := s.events.PublishPromotionCreated(ctx, p); err != nil {
			s.logger.Error("failed to publish promotion_created", slog.String("id", p.ID), slog.Any("error", err))
		}
	}
	return p, nil
}

// Categories resuelve los tipos de todas las categorías en un solo lote.
func (s *DashboardService) Categories(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := listAs[model.Category](ctx, s, model.CollectionCategories, bson.M{})
	if err != nil {
		return nil, err
	}

	var refs []model.Ref
	for _, c := range categories {
		refs = append(refs, c.Types...)
	}
	results := s.resolver.ResolveAll(ctx, refs)

	out := make([]dto.CategoryResponse, 0, len(categories))
	next := 0
	for _, c := range categories {
		names := make([]string, 0, len(c.Types))
		for range c.Types {
			name := UnknownType
			var t model.Type
			if res := results[next]; res.Resolved() && res.Decode(&t) == nil && t.Name != "" {
				name = t.Name
			}
			names = append(names, name)
			next++
		}
		out = append(out, dto.CategoryResponse{
			ID:         c.ID,
			Name:       c.Name,
			PictureURL: c.PictureURL,
			Types:      names,
		})
	}
	return out, nil
}

// market devuelve el primer documento de la colección market.
func (s *DashboardService) market(ctx context.Context) (*model.Market, error) {
	markets, err := listAs[model.Market](ctx, s, model.CollectionMarket, bson.M{})
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return nil, ErrMarketNotConfigured
	}
	return &markets[0], nil
}

// ToggleMarket abre o cierra el market. Sólo se escribe isOpen; el resto
// del documento queda como está.
func (s *DashboardService) ToggleMarket(ctx context.Context) (dto.MarketResponse, error) {
	m, err := s.market(ctx)
	if err != nil {
		return dto.MarketResponse{}, err
	}
	m.IsOpen = !m.IsOpen

	if err := s.store.UpdateDocument(ctx, model.CollectionMarket, m.ID, bson.M{"isOpen": m.IsOpen}); err != nil {
		return dto.MarketResponse{}, fmt.Errorf("failed to update market: %w", err)
	}
	s.logger.Info("market toggled", slog.String("id", m.ID), slog.Bool("is_open", m.IsOpen))

	return marketResponse(m), nil
}

// SetDeliveryFees cambia los gastos de envío del market.
func (s *DashboardService) SetDeliveryFees(ctx context.Context, fees decimal.Decimal) (dto.MarketResponse, error) {
	if fees.IsNegative() {
		return dto.MarketResponse{}, fmt.Errorf("%w: %s", ErrInvalidDeliveryFees, fees)
	}
	m, err := s.market(ctx)
	if err != nil {
		return dto.MarketResponse{}, err
	}
	m.DeliveryFees = fees.Round(2).InexactFloat64()

	if err := s.store.UpdateDocument(ctx, model.CollectionMarket, m.ID, bson.M{"delivaryfees": m.DeliveryFees}); err != nil {
		return dto.MarketResponse{}, fmt.Errorf("failed to update market: %w", err)
	}
	s.logger.Info("delivery fees updated", slog.String("id", m.ID), slog.Float64("delivery_fees", m.DeliveryFees))

	return marketResponse(m), nil
}

func marketResponse(m *model.Market) dto.MarketResponse {
	return dto.MarketResponse{
		ID:           m.ID,
		IsOpen:       m.IsOpen,
		DeliveryFees: decimal.NewFromFloat(m.DeliveryFees),
	}
}
