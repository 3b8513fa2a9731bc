package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"delivery-dashboard/internal/aggregate"
	"delivery-dashboard/internal/dto"
	"delivery-dashboard/internal/leaderboard"
	"delivery-dashboard/internal/middleware"
	"delivery-dashboard/internal/model"
	"delivery-dashboard/internal/orderview"
	"delivery-dashboard/internal/promotion"
	"delivery-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Dashboard es lo que el controller necesita del servicio.
type Dashboard interface {
	Stats(ctx context.Context) (dto.StatsResponse, error)
	RecentOrders(ctx context.Context) ([]orderview.OrderView, error)
	ListOrders(ctx context.Context, q dto.OrderListQuery) (dto.OrderPage, error)
	OrderDetail(ctx context.Context, orderID string) (orderview.OrderView, error)
	Revenue(ctx context.Context, granularity string) ([]aggregate.Bucket, error)
	Leaderboard(ctx context.Context, size int) ([]leaderboard.Entry, error)
	DeliveryPeople(ctx context.Context, q dto.DeliveryPeopleQuery) ([]dto.DeliveryPersonResponse, error)
	Customers(ctx context.Context, q dto.CustomerQuery) ([]dto.CustomerResponse, error)
	Zones(ctx context.Context, q dto.ZoneQuery) ([]model.Zone, error)
	Promotions(ctx context.Context, q dto.PromotionQuery) ([]model.Promotion, error)
	ActivePromotions(ctx context.Context) ([]model.Promotion, error)
	CreatePromotion(ctx context.Context, req dto.CreatePromotionRequest, actorID string) (model.Promotion, error)
	Categories(ctx context.Context) ([]dto.CategoryResponse, error)
	ToggleMarket(ctx context.Context) (dto.MarketResponse, error)
	SetDeliveryFees(ctx context.Context, fees decimal.Decimal) (dto.MarketResponse, error)
}

type DashboardController struct {
	Service Dashboard
	logger  *slog.Logger
}

func NewDashboardController(logger *slog.Logger, s Dashboard) *DashboardController {
	return &DashboardController{Service: s, logger: logger.With(slog.String("component", "controller"))}
}

// RegisterRoutes cuelga las rutas de lectura en r y las de escritura en admin.
func (ctl *DashboardController) RegisterRoutes(r, admin gin.IRouter) {
	r.GET("/dashboard/stats", ctl.GetStats)
	r.GET("/dashboard/recent-orders", ctl.GetRecentOrders)
	r.GET("/dashboard/revenue", ctl.GetRevenue)
	r.GET("/dashboard/leaderboard", ctl.GetLeaderboard)
	r.GET("/orders", ctl.ListOrders)
	r.GET("/orders/:orderId", ctl.GetOrder)
	r.GET("/delivery-people", ctl.ListDeliveryPeople)
	r.GET("/customers", ctl.ListCustomers)
	r.GET("/zones", ctl.ListZones)
	r.GET("/promotions", ctl.ListPromotions)
	r.GET("/promotions/active", ctl.ListActivePromotions)
	r.GET("/categories", ctl.ListCategories)

	admin.POST("/promotions", ctl.CreatePromotion)
	admin.PATCH("/market/toggle", ctl.ToggleMarket)
	admin.PATCH("/market/delivery-fees", ctl.SetDeliveryFees)
}

// writeError traduce errores de negocio a códigos HTTP.
func (ctl *DashboardController) writeError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, promotion.ErrInvalidValidityWindow),
		errors.Is(err, promotion.ErrInvalidRequest),
		errors.Is(err, aggregate.ErrUnknownGranularity),
		errors.Is(err, service.ErrInvalidDeliveryFees):
		code = http.StatusBadRequest
	case errors.Is(err, promotion.ErrCodeGenerationExhausted):
		code = http.StatusConflict
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrMarketNotConfigured):
		code = http.StatusNotFound
	}

	if code == http.StatusInternalServerError {
		ctl.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// GET /dashboard/stats
func (ctl *DashboardController) GetStats(c *gin.Context) {
	stats, err := ctl.Service.Stats(c.Request.Context())
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /dashboard/recent-orders
func (ctl *DashboardController) GetRecentOrders(c *gin.Context) {
	orders, err := ctl.Service.RecentOrders(c.Request.Context())
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /dashboard/revenue?granularity=day|week|month
func (ctl *DashboardController) GetRevenue(c *gin.Context) {
	var q dto.RevenueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	buckets, err := ctl.Service.Revenue(c.Request.Context(), q.Granularity)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// GET /dashboard/leaderboard?size=3
func (ctl *DashboardController) GetLeaderboard(c *gin.Context) {
	var q dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := ctl.Service.Leaderboard(c.Request.Context(), q.Size)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GET /orders?page=1&pageSize=5&status=Delivering
func (ctl *DashboardController) ListOrders(c *gin.Context) {
	var q dto.OrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := ctl.Service.ListOrders(c.Request.Context(), q)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /orders/:orderId
func (ctl *DashboardController) GetOrder(c *gin.Context) {
	view, err := ctl.Service.OrderDetail(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /delivery-people?availability=available|busy&q=
func (ctl *DashboardController) ListDeliveryPeople(c *gin.Context) {
	var q dto.DeliveryPeopleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	people, err := ctl.Service.DeliveryPeople(c.Request.Context(), q)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

// GET /customers?q=
func (ctl *DashboardController) ListCustomers(c *gin.Context) {
	var q dto.CustomerQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	customers, err := ctl.Service.Customers(c.Request.Context(), q)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

// GET /zones?q=&isOpen=true
func (ctl *DashboardController) ListZones(c *gin.Context) {
	var q dto.ZoneQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	zones, err := ctl.Service.Zones(c.Request.Context(), q)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, zones)
}

// GET /promotions?q=&order=asc|desc
func (ctl *DashboardController) ListPromotions(c *gin.Context) {
	var q dto.PromotionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	promos, err := ctl.Service.Promotions(c.Request.Context(), q)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, promos)
}

// GET /promotions/active
func (ctl *DashboardController) ListActivePromotions(c *gin.Context) {
	promos, err := ctl.Service.ActivePromotions(c.Request.Context())
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, promos)
}

// POST /admin/promotions (solo admin)
func (ctl *DashboardController) CreatePromotion(c *gin.Context) {
	var req dto.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := ctl.Service.CreatePromotion(c.Request.Context(), req, c.GetString(middleware.CtxUserID))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /categories
func (ctl *DashboardController) ListCategories(c *gin.Context) {
	categories, err := ctl.Service.Categories(c.Request.Context())
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// PATCH /admin/market/toggle (solo admin)
func (ctl *DashboardController) ToggleMarket(c *gin.Context) {
	m, err := ctl.Service.ToggleMarket(c.Request.Context())
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PATCH /admin/market/delivery-fees (solo admin)
func (ctl *DashboardController) SetDeliveryFees(c *gin.Context) {
	var req dto.DeliveryFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := ctl.Service.SetDeliveryFees(c.Request.Context(), *req.DeliveryFees)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
