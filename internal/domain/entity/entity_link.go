package entity

import "time"

// Niveles de confianza de un vínculo.
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Origen de un vínculo.
const (
	LinkedBySystem = "SYSTEM"
	LinkedByUser   = "USER"
)

// EntityLink asocia un cheque o cuota con su dueño probable. Invariante: a lo
// sumo un vínculo activo por (EntityID, EntityType); re-vincular reemplaza el
// anterior, nunca acumula. Un vínculo de usuario siempre prevalece sobre uno
// del sistema, sin importar el orden de escritura.
type EntityLink struct {
	EntityID   string
	EntityType string // CHECK o INSTALLMENT
	OwnerID    string
	OwnerType  string // CUSTOMER, SUPPLIER o EMPLOYEE
	Confidence string
	LinkedBy   string // SYSTEM o USER
	CreatedAt  time.Time
}

// confidenceRank ordena los niveles para comparar candidatos.
var confidenceRank = map[string]int{
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// ConfidenceAtLeast reporta si got alcanza el piso floor (HIGH > MEDIUM > LOW).
func ConfidenceAtLeast(got, floor string) bool {
	return confidenceRank[got] >= confidenceRank[floor]
}
