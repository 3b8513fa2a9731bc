// dto.go
package dto

import (
	"time"

	"delivery-dashboard/internal/orderview"

	"github.com/shopspring/decimal"
)

// Query de GET /orders
type OrderListQuery struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"pageSize,default=5" binding:"min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=Pending Delivering Delivered Unknown"`
}

type OrderPage struct {
	Items      []orderview.OrderView `json:"items"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"totalPages"`
}

type RevenueQuery struct {
	Granularity string `form:"granularity" binding:"omitempty,oneof=day week month"`
}

type LeaderboardQuery struct {
	Size int `form:"size" binding:"omitempty,min=1,max=50"`
}

type DeliveryPeopleQuery struct {
	Availability string `form:"availability" binding:"omitempty,oneof=available busy"`
	Search       string `form:"q"`
}

type ZoneQuery struct {
	Search string `form:"q"`
	IsOpen *bool  `form:"isOpen"`
}

type PromotionQuery struct {
	Search string `form:"q"`
	Order  string `form:"order,default=desc" binding:"oneof=asc desc"`
}

type CustomerQuery struct {
	Search string `form:"q"`
}

// CreatePromotionRequest es el body de POST /admin/promotions. La ventana
// de validez se controla en el servicio.
type CreatePromotionRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	DateStart   time.Time `json:"dateStart" binding:"required"`
	DateEnd     time.Time `json:"dateEnd" binding:"required"`
	MaxNumber   int       `json:"maxNumber" binding:"required,gt=0"`
	Percentage  float64   `json:"percentage" binding:"required,gt=0,lte=100"`
	Image       string    `json:"image" binding:"omitempty,url"`
}

type StatsResponse struct {
	TotalSales          decimal.Decimal `json:"totalSales"`
	OrderCount          int             `json:"orderCount"`
	UserCount           int64           `json:"userCount"`
	DeliveryPersonCount int64           `json:"deliveryPersonCount"`
	MarketOpen          bool            `json:"marketOpen"`
	DeliveryFees        decimal.Decimal `json:"deliveryFees"`
}

type DeliveryPersonResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	PhotoURL      string   `json:"photoUrl,omitempty"`
	ShippingScore *float64 `json:"shippingScore"`
	Availability  string   `json:"availability"`
}

type CustomerResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	PhotoURL   string          `json:"photoUrl,omitempty"`
	OrderCount int             `json:"orderCount"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

type CategoryResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PictureURL string   `json:"pictureUrl,omitempty"`
	Types      []string `json:"types"`
}

// Body de PATCH /admin/market/delivery-fees
type DeliveryFeesRequest struct {
	DeliveryFees *decimal.Decimal `json:"deliveryFees" binding:"required"`
}

type MarketResponse struct {
	ID           string          `json:"id"`
	IsOpen       bool            `json:"isOpen"`
	DeliveryFees decimal.Decimal `json:"deliveryFees"`
}
