package orchestrator

import (
	"github.com/shopspring/decimal"
)

// Estados de pago de un evento.
const (
	PaymentStatusPaid    = "PAID"
	PaymentStatusPending = "PENDING"
)

// EventLine es una línea de venta o compra.
type EventLine struct {
	ProductID string
	Quantity  decimal.Decimal // siempre positiva; el signo lo pone el orquestador
	UnitValue decimal.Decimal
}

// SaleEvent evento de venta completada que llega del módulo de ventas.
type SaleEvent struct {
	ID            string
	Lines         []EventLine
	CustomerRef   string
	PaymentStatus string
	// Referencia opcional a un instrumento creado por la venta (cheque o
	// cuota); dispara la conciliación al cerrar.
	InstrumentID   string
	InstrumentType string
}

// PurchaseEvent evento de compra completada (simétrico a la venta).
type PurchaseEvent struct {
	ID             string
	Lines          []EventLine
	SupplierRef    string
	PaymentStatus  string
	InstrumentID   string
	InstrumentType string
}

// InvestorTransaction compra o venta hecha con capital de un inversionista.
type InvestorTransaction struct {
	ID         string
	InvestorID string
	ProductID  string
	Quantity   decimal.Decimal // positiva
	Value      decimal.Decimal
}

// Tipos de referencia de movimientos generados por el orquestador.
const (
	ReferenceTypeSale                = "SALE"
	ReferenceTypePurchase            = "PURCHASE"
	ReferenceTypeInvestorTransaction = "INVESTOR_TRANSACTION"
)
