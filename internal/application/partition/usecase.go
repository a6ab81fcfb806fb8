package partition

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

// CapitalReader expone el capital aportado por un inversionista. Solo lectura:
// los depósitos de capital los administra el módulo de inversionistas.
type CapitalReader interface {
	TotalInvestment(ctx context.Context, ownerID string) (decimal.Decimal, error)
}

// Holding es la posición de un producto dentro de la partición de un dueño.
type Holding struct {
	ProductID    string
	CurrentStock decimal.Decimal
	CurrentValue decimal.Decimal // valor libro restante: entradas - salidas
}

// OwnershipPartition agrega lo atribuible a un dueño. Derivado siempre del log
// de movimientos; nunca se almacena.
type OwnershipPartition struct {
	OwnerID          *string // nil = la empresa
	Holdings         []Holding
	TotalInvestment  decimal.Decimal
	TotalSpent       decimal.Decimal // Σ valor de movimientos de entrada
	TotalSalesValue  decimal.Decimal // Σ valor de movimientos de salida
	RemainingCapital decimal.Decimal // inversión - gastado + ventas
}

// Availability resultado de la validación previa de disponibilidad.
type Availability struct {
	Available bool
	Shortfall decimal.Decimal
}

// UseCase es la vista de particiones por dueño sobre el libro de movimientos.
// No escribe nada.
type UseCase struct {
	ledger    *ledger.UseCase
	movements repository.MovementRepository
	capital   CapitalReader
}

// NewUseCase construye la vista. capital puede ser nil (todo a cero).
func NewUseCase(ledgerUC *ledger.UseCase, movements repository.MovementRepository, capital CapitalReader) *UseCase {
	return &UseCase{ledger: ledgerUC, movements: movements, capital: capital}
}

const partitionPageSize = 500

// PartitionFor agrega movimientos del dueño en páginas: stock y valor por
// producto más los totales de capital. Dueño nil = la empresa.
func (uc *UseCase) PartitionFor(ctx context.Context, ownerID *string) (*OwnershipPartition, error) {
	p := &OwnershipPartition{OwnerID: ownerID}

	byProduct := make(map[string]*Holding)
	offset := 0
	for {
		page, err := uc.movements.ListByOwner(ctx, ownerID, partitionPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			h, ok := byProduct[m.ProductID]
			if !ok {
				h = &Holding{ProductID: m.ProductID}
				byProduct[m.ProductID] = h
			}
			h.CurrentStock = h.CurrentStock.Add(m.Quantity)
			if m.Inbound() {
				h.CurrentValue = h.CurrentValue.Add(m.Value)
				p.TotalSpent = p.TotalSpent.Add(m.Value)
			} else {
				h.CurrentValue = h.CurrentValue.Sub(m.Value)
				p.TotalSalesValue = p.TotalSalesValue.Add(m.Value)
			}
		}
		if len(page) < partitionPageSize {
			break
		}
		offset += partitionPageSize
	}

	for _, h := range byProduct {
		p.Holdings = append(p.Holdings, *h)
	}
	sort.Slice(p.Holdings, func(i, j int) bool { return p.Holdings[i].ProductID < p.Holdings[j].ProductID })

	if uc.capital != nil && ownerID != nil {
		inv, err := uc.capital.TotalInvestment(ctx, *ownerID)
		if err != nil {
			return nil, err
		}
		p.TotalInvestment = inv
	}
	p.RemainingCapital = p.TotalInvestment.Sub(p.TotalSpent).Add(p.TotalSalesValue)
	return p, nil
}

// ValidateAvailability verifica que el dueño tenga requestedQty del producto.
// Es consultivo: la autoridad final es el chequeo del Append serializado, que
// puede fallar igual si otra venta concurrente consumió la última unidad.
func (uc *UseCase) ValidateAvailability(ctx context.Context, productID string, ownerID *string, requestedQty decimal.Decimal) (Availability, error) {
	if productID == "" || !requestedQty.IsPositive() {
		return Availability{}, domain.ErrInvalidInput
	}
	current, err := uc.ledger.ProjectStock(ctx, productID, ownerID)
	if err != nil {
		return Availability{}, err
	}
	if current.GreaterThanOrEqual(requestedQty) {
		return Availability{Available: true, Shortfall: decimal.Zero}, nil
	}
	return Availability{Available: false, Shortfall: requestedQty.Sub(current)}, nil
}
