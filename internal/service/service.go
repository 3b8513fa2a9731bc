package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"delivery-dashboard/internal/aggregate"
	"delivery-dashboard/internal/dto"
	"delivery-dashboard/internal/leaderboard"
	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/orderview"
	"delivery-dashboard/internal/promotion"
	"delivery-dashboard/internal/status"
	"delivery-dashboard/pkg/cache"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// Interfaz que debe implementar repository
type DocumentStore interface {
	GetDocument(ctx context.Context, collection, id string) (bson.Raw, bool, error)
	ListDocuments(ctx context.Context, collection string, filter bson.M) ([]bson.Raw, error)
	SaveDocument(ctx context.Context, collection, id string, doc any) (string, error)
	CountDocuments(ctx context.Context, collection string, filter bson.M) (int64, error)
	UpdateDocument(ctx context.Context, collection, id string, fields bson.M) error
}

// EventPublisher avisa a otros servicios de cambios hechos desde el dashboard.
type EventPublisher interface {
	PublishPromotionCreated(ctx context.Context, p model.Promotion) error
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrOrderNotFound       = errors.New("orden no encontrada")
	ErrMarketNotConfigured = errors.New("no hay documento de market configurado")
	ErrInvalidDeliveryFees = errors.New("los gastos de envío no pueden ser negativos")
)

const (
	RecentOrdersLimit = 5
	DefaultPageSize   = 5
	UnknownType       = "Unknown Type"
)

type RevenueCache = cache.LRU[aggregate.Granularity, []aggregate.Bucket]

// Deps agrupa las dependencias del servicio. Events y RevenueCache son opcionales.
type Deps struct {
	Store           DocumentStore
	Resolver        orderview.RefResolver
	Hydrator        *orderview.Hydrator
	Aggregator      *aggregate.Aggregator
	Lifecycle       *promotion.Lifecycle
	Events          EventPublisher
	RevenueCache    *RevenueCache
	LeaderboardSize int
}

type DashboardService struct {
	store           DocumentStore
	resolver        orderview.RefResolver
	hydrator        *orderview.Hydrator
	aggregator      *aggregate.Aggregator
	lifecycle       *promotion.Lifecycle
	events          EventPublisher
	revenue         *RevenueCache
	leaderboardSize int

	// revenueGen cambia en cada invalidación; un cálculo empezado antes de
	// una invalidación no se guarda en la caché.
	revenueMu  sync.Mutex
	revenueGen uint64

	logger          *slog.Logger
	now             func() time.Time
}

func NewDashboardService(logger *slog.Logger, d Deps) *DashboardService {
	return &DashboardService{
		store:           d.Store,
		resolver:        d.Resolver,
		hydrator:        d.Hydrator,
		aggregator:      d.Aggregator,
		lifecycle:       d.Lifecycle,
		events:          d.Events,
		revenue:         d.RevenueCache,
		leaderboardSize: d.LeaderboardSize,
		logger:          logger.With(slog.String("component", "dashboard")),
		now:             time.Now,
	}
}

// decodeAll decodifica cada documento en T. Un documento ilegible se salta
// y queda en el log; no rompe el listado.
func decodeAll[T any](logger *slog.Logger, collection string, docs []bson.Raw) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := bson.Unmarshal(doc, &v); err != nil {
			logger.Warn("skipping undecodable document",
				slog.String("collection", collection),
				slog.String("id", model.DocumentID(doc)),
				slog.Any("error", err),
			)
			continue
		}
		out = append(out, v)
	}
	return out
}

func listAs[T any](ctx context.Context, s *DashboardService, collection string, filter bson.M) ([]T, error) {
	docs, err := s.store.ListDocuments(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](s.logger, collection, docs), nil
}

func (s *DashboardService) orders(ctx context.Context) ([]model.Order, error) {
	return listAs[model.Order](ctx, s, model.CollectionOrders, bson.M{})
}

// sortByPlacedDesc: más recientes primero, órdenes sin fecha al final.
func sortByPlacedDesc(orders []model.Order) {
	slices.SortStableFunc(orders, func(a, b model.Order) int {
		switch av, bv := a.PlacedAt.Valid(), b.PlacedAt.Valid(); {
		case av && !bv:
			return -1
		case !av && bv:
			return 1
		case av && bv:
			if c := b.PlacedAt.Time.Compare(a.PlacedAt.Time); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// Stats: ventas totales, cantidad de órdenes/usuarios/repartidores y estado del market.
func (s *DashboardService) Stats(ctx context.Context) (dto.StatsResponse, error) {
	var (
		out    dto.StatsResponse
		orders []model.Order
		market *model.Market
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.UserCount, err = s.store.CountDocuments(gctx, model.CollectionUsers, bson.M{})
		return err
	})
	g.Go(func() error {
		var err error
		out.DeliveryPersonCount, err = s.store.CountDocuments(gctx, model.CollectionUsers,
			bson.M{"role": model.RoleDeliveryMan})
		return err
	})
	g.Go(func() error {
		m, err := s.market(gctx)
		if errors.Is(err, ErrMarketNotConfigured) {
			return nil
		}
		market = m
		return err
	})
	if err := g.Wait(); err != nil {
		return dto.StatsResponse{}, fmt.Errorf("failed to compute stats: %w", err)
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(decimal.NewFromFloat(o.TotalAmount))
	}
	out.TotalSales = total.Round(2)
	out.OrderCount = len(orders)
	out.DeliveryFees = decimal.Zero
	if market != nil {
		out.MarketOpen = market.IsOpen
		out.DeliveryFees = decimal.NewFromFloat(market.DeliveryFees)
	}
	return out, nil
}

func (s *DashboardService) RecentOrders(ctx context.Context) ([]orderview.OrderView, error) {
	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	sortByPlacedDesc(orders)
	if len(orders) > RecentOrdersLimit {
		orders = orders[:RecentOrdersLimit]
	}
	return s.hydrator.HydrateAll(ctx, s.now(), orders), nil
}

// ListOrders pagina las órdenes (más recientes primero). Sólo se resuelven
// las referencias de la página pedida.
func (s *DashboardService) ListOrders(ctx context.Context, q dto.OrderListQuery) (dto.OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	orders, err := s.orders(ctx)
	if err != nil {
		return dto.OrderPage{}, err
	}

	now := s.now()
	if q.Status != "" {
		orders = slices.DeleteFunc(orders, func(o model.Order) bool {
			return string(status.Evaluate(now, o.PlacedAt, o.ShippingStartedAt, o.FinishedAt)) != q.Status
		})
	}
	sortByPlacedDesc(orders)

	totalPages := len(orders) / q.PageSize
	if len(orders)%q.PageSize != 0 {
		totalPages++
	}
	page := dto.OrderPage{
		Items:      []orderview.OrderView{},
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      len(orders),
		TotalPages: totalPages,
	}
	// comparar páginas antes de multiplicar: page*pageSize puede desbordar
	if q.Page > totalPages {
		return page, nil
	}
	start := (q.Page - 1) * q.PageSize
	end := start + min(q.PageSize, len(orders)-start)
	page.Items = s.hydrator.HydrateAll(ctx, now, orders[start:end])
	return page, nil
}

func (s *DashboardService) OrderDetail(ctx context.Context, orderID string) (orderview.OrderView, error) {
	doc, found, err := s.store.GetDocument(ctx, model.CollectionOrders, orderID)
	if err != nil {
		return orderview.OrderView{}, err
	}
	if !found {
		return orderview.OrderView{}, ErrOrderNotFound
	}

	var o model.Order
	if err := bson.Unmarshal(doc, &o); err != nil {
		return orderview.OrderView{}, fmt.Errorf("failed to decode order %s: %w", orderID, err)
	}
	return s.hydrator.Hydrate(ctx, s.now(), o), nil
}

// Revenue agrupa TotalAmount por fecha de pedido. El resultado se cachea por
// granularidad hasta que llega una orden nueva o vence el TTL.
func (s *DashboardService) Revenue(ctx context.Context, granularity string) ([]aggregate.Bucket, error) {
	g, err := aggregate.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	if s.revenue != nil {
		if buckets, ok := s.revenue.Get(g); ok {
			return buckets, nil
		}
	}

	s.revenueMu.Lock()
	gen := s.revenueGen
	s.revenueMu.Unlock()

	orders, err := s.orders(ctx)
	if err != nil {
		return nil, err
	}
	buckets, err := s.aggregator.Aggregate(aggregate.PointsFromOrders(orders), g)
	if err != nil {
		return nil, err
	}

	if s.revenue != nil {
		s.revenueMu.Lock()
		if gen == s.revenueGen {
			s.revenue.Set(g, buckets)
		}
		s.revenueMu.Unlock()
	}
	return buckets, nil
}

// InvalidateAggregates descarta los agregados cacheados y los que se estén
// calculando en este momento.
func (s *DashboardService) InvalidateAggregates() {
	s.revenueMu.Lock()
	defer s.revenueMu.Unlock()
	s.revenueGen++
	if s.revenue != nil {
		s.revenue.Purge()
	}
}

func (s *DashboardService) Leaderboard(ctx context.Context, size int) ([]leaderboard.Entry, error) {
	if size <= 0 {
		size = s.leaderboardSize
	}
	people, err := listAs[model.DeliveryPerson](ctx, s, model.CollectionUsers, bson.M{"role": model.RoleDeliveryMan})
	if err != nil {
		return nil, err
	}
	return leaderboard.Rank(people, size), nil
}
