package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de instrumento vinculable.
const (
	LinkableTypeCheck       = "CHECK"
	LinkableTypeInstallment = "INSTALLMENT"
)

// Linkable es un instrumento financiero con identificación débil: un cheque o
// una cuota capturados con un nombre libre (tal como lo tecleó el usuario),
// sin dueño explícito hasta que la conciliación lo vincule.
type Linkable struct {
	ID               string
	Type             string // CHECK o INSTALLMENT
	Amount           decimal.Decimal
	CounterpartyName string // texto libre, sin normalizar
	Phone            string // opcional
	DueDate          time.Time
	Status           string
	OwnerID          *string // presentes solo tras vincular
	OwnerType        string
}
