package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OutstandingDocument es una factura o deuda pendiente de una contraparte.
// Lectura únicamente; alimenta el puntaje por proximidad de monto del matcher.
type OutstandingDocument struct {
	ID       string
	OwnerID  string
	Amount   decimal.Decimal
	IssuedAt time.Time
}
