package domain

import (
	"time"

	"github.com/google/uuid"
)

type Sale struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"-"`
	UserID         string     `gorm:"size:80" json:"user_id,omitempty"`
	DateTime       time.Time  `gorm:"index;not null" json:"date_time"`
	TotalAmount    float64    `gorm:"not null" json:"total_amount"`
	Items          []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Cost is the cost of goods sold captured when the sale was recorded.
func (s Sale) Cost() float64 {
	var c float64
	for _, it := range s.Items {
		c += it.UnitCost * float64(it.Quantity)
	}
	return c
}

// SaleItem snapshots price and cost at the time of sale.
type SaleItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID `gorm:"type:uuid;index;not null" json:"sale_id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"not null" json:"unit_price"`
	UnitCost  float64   `gorm:"not null" json:"unit_cost"`
}

type SaleLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type SalesQuery struct {
	Start  *time.Time
	End    *time.Time
	Search string
	Cursor *uuid.UUID
	Limit  int
}

type PeriodStats struct {
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

type SalesHistory struct {
	Sales       []Sale      `json:"sales"`
	HasMore     bool        `json:"has_more"`
	NextCursor  *uuid.UUID  `json:"next_cursor,omitempty"`
	TotalCount  int64       `json:"total_count"`
	PeriodStats PeriodStats `json:"period_stats"`
}

type FixedCost struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Name           string    `gorm:"size:140;not null" json:"name"`
	Amount         float64   `gorm:"not null" json:"amount"`
	Category       string    `gorm:"size:100" json:"category,omitempty"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	Active         bool      `gorm:"not null" json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type DashboardStats struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCost       float64 `json:"total_cost"`
	TotalProfit     float64 `json:"total_profit"`
	TotalFixedCosts float64 `json:"total_fixed_costs"`
	NetResult       float64 `json:"net_result"`
	TotalSalesCount int64   `json:"total_sales_count"`
	LowStockCount   int     `json:"low_stock_count"`
	RecentSales     []Sale  `json:"recent_sales"`
}
