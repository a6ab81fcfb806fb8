package partition_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Particiones por dueño: todo derivado del log de movimientos, nada almacenado.
// ──────────────────────────────────────────────────────────────────────────────

type partitionFixture struct {
	ledger  *ledger.UseCase
	uc      *partition.UseCase
	capital *memory.CapitalBook
}

func newPartitionFixture() *partitionFixture {
	movements := memory.NewMovementRepository()
	levels := memory.NewStockLevelRepository()
	ledgerUC := ledger.NewUseCase(memory.NewTxRunner(movements, levels), movements, levels, ledger.Config{StockProtection: true})
	capital := memory.NewCapitalBook()
	return &partitionFixture{
		ledger:  ledgerUC,
		uc:      partition.NewUseCase(ledgerUC, movements, capital),
		capital: capital,
	}
}

func appendMov(t *testing.T, ledgerUC *ledger.UseCase, productID string, qty, value int64, kind string, ownerID *string, key string) {
	t.Helper()
	ownerType := entity.OwnerTypeCompany
	if ownerID != nil {
		ownerType = entity.OwnerTypeInvestor
	}
	_, err := ledgerUC.Append(context.Background(), &entity.Movement{
		ProductID:      productID,
		Quantity:       decimal.NewFromInt(qty),
		Kind:           kind,
		OwnerID:        ownerID,
		OwnerType:      ownerType,
		Value:          decimal.NewFromInt(value),
		IdempotencyKey: key,
	})
	require.NoError(t, err)
}

func TestPartitionFor_AgregaPorProductoYCapital(t *testing.T) {
	f := newPartitionFixture()
	inv := "inversionista-1"
	f.capital.Set(inv, decimal.NewFromInt(10000))

	// El inversionista compra 10 a 3000 y vende 4 a 1800.
	appendMov(t, f.ledger, "prod-1", 10, 3000, entity.MovementKindInvestorPurchase, &inv, "ic1:0")
	appendMov(t, f.ledger, "prod-1", -4, 1800, entity.MovementKindInvestorSale, &inv, "iv1:0")
	// Movimientos de la empresa: no deben filtrarse a la partición.
	appendMov(t, f.ledger, "prod-1", 50, 9000, entity.MovementKindPurchase, nil, "c1:0")

	p, err := f.uc.PartitionFor(context.Background(), &inv)
	require.NoError(t, err)

	require.Len(t, p.Holdings, 1)
	h := p.Holdings[0]
	assert.Equal(t, "prod-1", h.ProductID)
	assert.True(t, h.CurrentStock.Equal(decimal.NewFromInt(6)), "10 - 4 = 6")
	assert.True(t, h.CurrentValue.Equal(decimal.NewFromInt(1200)), "valor libro: 3000 - 1800")

	assert.True(t, p.TotalInvestment.Equal(decimal.NewFromInt(10000)))
	assert.True(t, p.TotalSpent.Equal(decimal.NewFromInt(3000)))
	assert.True(t, p.TotalSalesValue.Equal(decimal.NewFromInt(1800)))
	// 10000 - 3000 + 1800
	assert.True(t, p.RemainingCapital.Equal(decimal.NewFromInt(8800)), "capital restante recalculado, no almacenado")
}

func TestPartitionFor_EmpresaNoConsultaCapital(t *testing.T) {
	f := newPartitionFixture()
	appendMov(t, f.ledger, "prod-1", 50, 9000, entity.MovementKindPurchase, nil, "c1:0")

	p, err := f.uc.PartitionFor(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, p.Holdings, 1)
	assert.True(t, p.TotalInvestment.IsZero(), "la empresa no tiene capital de inversionista")
	assert.True(t, p.TotalSpent.Equal(decimal.NewFromInt(9000)))
}

func TestPartitionFor_DueñoSinMovimientosEsVacio(t *testing.T) {
	f := newPartitionFixture()
	nobody := "inversionista-fantasma"
	p, err := f.uc.PartitionFor(context.Background(), &nobody)
	require.NoError(t, err)
	assert.Empty(t, p.Holdings)
	assert.True(t, p.RemainingCapital.IsZero())
}

func TestValidateAvailability_ReportaFaltante(t *testing.T) {
	f := newPartitionFixture()
	appendMov(t, f.ledger, "prod-1", 5, 1000, entity.MovementKindPurchase, nil, "c1:0")

	ok, err := f.uc.ValidateAvailability(context.Background(), "prod-1", nil, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, ok.Available)

	short, err := f.uc.ValidateAvailability(context.Background(), "prod-1", nil, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.False(t, short.Available)
	assert.True(t, short.Shortfall.Equal(decimal.NewFromInt(3)), "faltan 3 para llegar a 8")

	_, err = f.uc.ValidateAvailability(context.Background(), "", nil, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
