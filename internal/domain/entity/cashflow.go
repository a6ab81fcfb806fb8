package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dirección de un asiento de flujo de caja.
const (
	CashFlowIn  = "IN"
	CashFlowOut = "OUT"
)

// CashFlowEntry es el evento que el núcleo emite por cada venta/compra pagada.
// El módulo de flujo de caja es un colaborador externo con su propio libro.
type CashFlowEntry struct {
	Amount      decimal.Decimal
	Direction   string // IN u OUT
	ReferenceID string
	Date        time.Time
}
