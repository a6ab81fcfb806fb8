package dto

import "github.com/shopspring/decimal"

// EventLineRequest línea de venta o compra.
type EventLineRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitValue decimal.Decimal `json:"unit_value"`
}

// SaleEventRequest evento de venta completada.
type SaleEventRequest struct {
	ID             string             `json:"id"`
	Lines          []EventLineRequest `json:"lines"`
	CustomerRef    string             `json:"customer_ref"`
	PaymentStatus  string             `json:"payment_status"`
	InstrumentID   string             `json:"instrument_id,omitempty"`
	InstrumentType string             `json:"instrument_type,omitempty"`
}

// PurchaseEventRequest evento de compra completada.
type PurchaseEventRequest struct {
	ID             string             `json:"id"`
	Lines          []EventLineRequest `json:"lines"`
	SupplierRef    string             `json:"supplier_ref"`
	PaymentStatus  string             `json:"payment_status"`
	InstrumentID   string             `json:"instrument_id,omitempty"`
	InstrumentType string             `json:"instrument_type,omitempty"`
}

// InvestorTransactionRequest compra o venta con capital de inversionista.
type InvestorTransactionRequest struct {
	ID         string          `json:"id"`
	InvestorID string          `json:"investor_id"`
	Kind       string          `json:"kind"` // PURCHASE o SALE
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Value      decimal.Decimal `json:"value"`
}

// EventResultResponse desenlace de una venta o compra procesada.
type EventResultResponse struct {
	MovementIDs     []string             `json:"movement_ids"`
	CashFlowEmitted bool                 `json:"cash_flow_emitted"`
	Linking         *SmartLinkingSummary `json:"linking,omitempty"`
}

// InvestorResultResponse desenlace de una transacción de inversionista.
type InvestorResultResponse struct {
	MovementID       string          `json:"movement_id"`
	RemainingCapital decimal.Decimal `json:"remaining_capital"`
}
