package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Libro de movimientos: append-only, proyección derivada, idempotencia por
// clave y protección de stock. Los tests corren contra los adaptadores en
// memoria, que cumplen el mismo contrato que los de postgres.
// ──────────────────────────────────────────────────────────────────────────────

type ledgerFixture struct {
	uc        *ledger.UseCase
	movements *memory.MovementRepo
	levels    *memory.StockLevelRepo
}

func newLedgerFixture(protection bool) *ledgerFixture {
	movements := memory.NewMovementRepository()
	levels := memory.NewStockLevelRepository()
	uc := ledger.NewUseCase(
		memory.NewTxRunner(movements, levels),
		movements, levels,
		ledger.Config{StockProtection: protection},
	)
	return &ledgerFixture{uc: uc, movements: movements, levels: levels}
}

func mov(productID string, qty int64, kind, key string) *entity.Movement {
	return &entity.Movement{
		ProductID:      productID,
		Quantity:       decimal.NewFromInt(qty),
		Kind:           kind,
		OwnerType:      entity.OwnerTypeCompany,
		IdempotencyKey: key,
	}
}

func TestAppend_ProyeccionSigueElLog(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	// Compra 10, venta 3: la proyección debe seguir cada movimiento.
	_, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)
	_, err = f.uc.Append(ctx, mov("prod-1", -3, entity.MovementKindSale, "v1:0"))
	require.NoError(t, err)

	stock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(7)), "10 - 3 debe proyectar 7, proyectó %s", stock)
}

func TestAppend_VentaQueDejariaNegativoEsRechazada(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	_, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)

	// Vender 3 y luego intentar vender 8: la segunda debe fallar entera.
	_, err = f.uc.Append(ctx, mov("prod-1", -3, entity.MovementKindSale, "v1:0"))
	require.NoError(t, err)
	_, err = f.uc.Append(ctx, mov("prod-1", -8, entity.MovementKindSale, "v2:0"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "vender 8 con 7 disponibles debe rechazarse")

	// El rechazo no deja rastro: la proyección sigue en 7.
	stock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(7)), "el movimiento rechazado no debe tocar el log")
	assert.Equal(t, 2, f.movements.Len())
}

func TestAppend_ReplayDeClaveEsNoOpExitoso(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	id1, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)

	// El mismo evento reprocesado (reintento tras timeout ambiguo) no duplica.
	id2, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err, "el replay debe ser un éxito, no un error")
	assert.Equal(t, id1, id2, "el replay debe devolver el ID del movimiento original")
	assert.Equal(t, 1, f.movements.Len(), "el replay no debe escribir un segundo movimiento")

	stock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(10)), "el replay no debe inflar la proyección")
}

func TestAppend_ValidaEntrada(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	cases := map[string]*entity.Movement{
		"sin producto":     mov("", 5, entity.MovementKindPurchase, "k1"),
		"cantidad cero":    mov("prod-1", 0, entity.MovementKindPurchase, "k2"),
		"tipo desconocido": mov("prod-1", 5, "MAGIC", "k3"),
		"sin clave":        mov("prod-1", 5, entity.MovementKindPurchase, ""),
		"dueño inconsistente": {
			ProductID:      "prod-1",
			Quantity:       decimal.NewFromInt(5),
			Kind:           entity.MovementKindPurchase,
			OwnerType:      entity.OwnerTypeInvestor, // OwnerID nil pero tipo inversionista
			IdempotencyKey: "k4",
		},
	}
	for name, m := range cases {
		_, err := f.uc.Append(ctx, m)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "caso %q debe rechazarse", name)
	}
	assert.Equal(t, 0, f.movements.Len(), "ningún movimiento inválido debe llegar al log")
}

func TestAppend_ParticionesPorDueñoSonIndependientes(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()
	inv := "inversionista-1"

	_, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)

	invMov := mov("prod-1", 4, entity.MovementKindInvestorPurchase, "ic1:0")
	invMov.OwnerID = &inv
	invMov.OwnerType = entity.OwnerTypeInvestor
	_, err = f.uc.Append(ctx, invMov)
	require.NoError(t, err)

	companyStock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	invStock, err := f.uc.ProjectStock(ctx, "prod-1", &inv)
	require.NoError(t, err)
	total, err := f.uc.ProjectStockTotal(ctx, "prod-1")
	require.NoError(t, err)

	assert.True(t, companyStock.Equal(decimal.NewFromInt(10)), "el stock de la empresa no incluye al inversionista")
	assert.True(t, invStock.Equal(decimal.NewFromInt(4)))
	assert.True(t, total.Equal(decimal.NewFromInt(14)), "el total agrega todas las particiones")
}

func TestHistory_PaginadoAscendenteYReiniciable(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, keyFor(i)))
		require.NoError(t, err)
	}

	page1, err := f.uc.History(ctx, "prod-1", nil, 3, 0)
	require.NoError(t, err)
	page2, err := f.uc.History(ctx, "prod-1", nil, 3, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.Len(t, page2, 2)

	// Reiniciable: pedir de nuevo desde el offset 0 da la misma primera página.
	again, err := f.uc.History(ctx, "prod-1", nil, 3, 0)
	require.NoError(t, err)
	require.Len(t, again, 3)
	for i := range page1 {
		assert.Equal(t, page1[i].ID, again[i].ID, "la paginación debe ser estable entre lecturas")
	}
}

func TestRebuildCache_EquivaleAlReplayDelLog(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()
	inv := "inversionista-1"

	_, err := f.uc.Append(ctx, mov("prod-1", 10, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)
	_, err = f.uc.Append(ctx, mov("prod-1", -3, entity.MovementKindSale, "v1:0"))
	require.NoError(t, err)
	invMov := mov("prod-2", 6, entity.MovementKindInvestorPurchase, "ic1:0")
	invMov.OwnerID = &inv
	invMov.OwnerType = entity.OwnerTypeInvestor
	_, err = f.uc.Append(ctx, invMov)
	require.NoError(t, err)

	// Simular divergencia en la caché persistida y reconstruir.
	require.NoError(t, f.levels.Upsert(ctx, &entity.StockLevel{
		ProductID: "prod-1",
		Quantity:  decimal.NewFromInt(999),
	}))
	require.NoError(t, f.uc.RebuildCache(ctx))

	stock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(7)), "tras el rebuild la proyección vuelve al replay del log")

	level, err := f.levels.Get(ctx, "prod-2", &inv)
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.True(t, level.Quantity.Equal(decimal.NewFromInt(6)))
}

// Ventas concurrentes sobre la última unidad: exactamente una debe ganar.
func TestAppend_ConcurrenciaSobreLaUltimaUnidad(t *testing.T) {
	f := newLedgerFixture(true)
	ctx := context.Background()

	_, err := f.uc.Append(ctx, mov("prod-1", 1, entity.MovementKindPurchase, "c1:0"))
	require.NoError(t, err)

	const sellers = 8
	var wg sync.WaitGroup
	errs := make([]error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Append(ctx, mov("prod-1", -1, entity.MovementKindSale, keyFor(100+i)))
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, won, "solo una venta concurrente puede llevarse la última unidad")

	stock, err := f.uc.ProjectStock(ctx, "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero(), "el stock final debe ser exactamente cero")
}

// ── helper ────────────────────────────────────────────────────────────────────

func keyFor(i int) string {
	return fmt.Sprintf("evt-%d:0", i)
}
