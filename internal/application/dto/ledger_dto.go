package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockResponse proyección de stock de un producto.
type StockResponse struct {
	ProductID string          `json:"product_id"`
	OwnerID   *string         `json:"owner_id,omitempty"` // ausente = la empresa
	AllOwners bool            `json:"all_owners,omitempty"`
	Stock     decimal.Decimal `json:"stock"`
}

// MovementResponse un movimiento del historial.
type MovementResponse struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Kind          string          `json:"kind"`
	OwnerID       *string         `json:"owner_id,omitempty"`
	OwnerType     string          `json:"owner_type"`
	Value         decimal.Decimal `json:"value"`
	ReferenceID   string          `json:"reference_id"`
	ReferenceType string          `json:"reference_type"`
	Date          time.Time       `json:"date"`
	Notes         string          `json:"notes,omitempty"`
}

// HoldingResponse posición de un producto dentro de una partición.
type HoldingResponse struct {
	ProductID    string          `json:"product_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	CurrentValue decimal.Decimal `json:"current_value"`
}

// PartitionResponse partición de un dueño.
type PartitionResponse struct {
	OwnerID          *string           `json:"owner_id,omitempty"` // ausente = la empresa
	Holdings         []HoldingResponse `json:"holdings"`
	TotalInvestment  decimal.Decimal   `json:"total_investment"`
	TotalSpent       decimal.Decimal   `json:"total_spent"`
	TotalSalesValue  decimal.Decimal   `json:"total_sales_value"`
	RemainingCapital decimal.Decimal   `json:"remaining_capital"`
}
