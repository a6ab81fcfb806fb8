package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de inventario.
const (
	MovementKindPurchase         = "PURCHASE"          // compra (entrada, empresa)
	MovementKindSale             = "SALE"              // venta (salida, empresa)
	MovementKindInvestorPurchase = "INVESTOR_PURCHASE" // compra con capital de inversionista
	MovementKindInvestorSale     = "INVESTOR_SALE"     // venta de stock de inversionista
	MovementKindAdjustment       = "ADJUSTMENT"        // ajuste (corrección, solo admin)
	MovementKindTransfer         = "TRANSFER"          // traslado entre dueños
	MovementKindReturn           = "RETURN"            // devolución
)

// Tipos de dueño de un movimiento.
const (
	OwnerTypeCompany  = "COMPANY"
	OwnerTypeInvestor = "INVESTOR"
)

// Movement es un hecho inmutable del libro: cantidad firmada (positiva entrada,
// negativa salida) y valor monetario, atribuidos a un producto y un dueño.
// Nunca se edita ni se borra; las correcciones son nuevos movimientos ADJUSTMENT
// con Notes apuntando a lo que corrigen.
type Movement struct {
	ID             string
	ProductID      string
	Quantity       decimal.Decimal // positiva entrada, negativa salida
	Kind           string
	OwnerID        *string // nil = la empresa
	OwnerType      string
	Value          decimal.Decimal // valor monetario del movimiento (costo/ingreso)
	ReferenceID    string          // id de la venta/compra/transacción que lo originó
	ReferenceType  string
	IdempotencyKey string // referenceID + índice de línea; un reintento con la misma clave no duplica
	Date           time.Time
	CreatedAt      time.Time
	Notes          string
}

// Inbound reporta si el movimiento es una entrada (cantidad positiva).
func (m *Movement) Inbound() bool {
	return m.Quantity.IsPositive()
}

// ValidKind reporta si kind es uno de los tipos de movimiento conocidos.
func ValidKind(kind string) bool {
	switch kind {
	case MovementKindPurchase, MovementKindSale, MovementKindInvestorPurchase,
		MovementKindInvestorSale, MovementKindAdjustment, MovementKindTransfer,
		MovementKindReturn:
		return true
	}
	return false
}

// StockPair identifica una partición de stock: un producto bajo un dueño.
type StockPair struct {
	ProductID string
	OwnerID   *string
}

// StockLevel es el agregado mantenido por (producto, dueño). Es una caché
// reconstruible a partir del log de movimientos, nunca una segunda fuente de
// verdad: cualquier divergencia se corrige con replay, no con parches.
type StockLevel struct {
	ProductID string
	OwnerID   *string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
