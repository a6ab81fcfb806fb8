package orchestrator_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/application/orchestrator"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/infrastructure/memory"
	"github.com/tu-usuario/gestion-core/pkg/logger"
	"github.com/tu-usuario/gestion-core/pkg/retry"
)

// ──────────────────────────────────────────────────────────────────────────────
// Orquestador de eventos: validación todo-o-nada, claves de idempotencia por
// línea, emisión de caja y disparo de conciliación que nunca bloquea.
// ──────────────────────────────────────────────────────────────────────────────

type orchestratorFixture struct {
	uc        *orchestrator.UseCase
	ledger    *ledger.UseCase
	movements *memory.MovementRepo
	capital   *memory.CapitalBook
	cashFlow  *memory.CashFlowRecorder
	linkables *memory.LinkableStore
	parties   *memory.PartyRepo
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	movements := memory.NewMovementRepository()
	levels := memory.NewStockLevelRepository()
	ledgerUC := ledger.NewUseCase(memory.NewTxRunner(movements, levels), movements, levels, ledger.Config{StockProtection: true})

	capital := memory.NewCapitalBook()
	partitionUC := partition.NewUseCase(ledgerUC, movements, capital)

	parties := memory.NewPartyRepository()
	linkables := memory.NewLinkableStore()
	linkingUC := linking.NewUseCase(
		memory.NewEntityLinkRepository(), parties,
		memory.NewOutstandingRepository(), linkables,
		linking.DefaultConfig(), logger.NewNop(),
	)

	cashFlow := memory.NewCashFlowRecorder()
	retryOpts := retry.Options{MaxAttempts: 3, BaseDelay: time.Millisecond, Jitter: false}
	uc := orchestrator.NewUseCase(ledgerUC, partitionUC, linkingUC, linkables, cashFlow, retryOpts, logger.NewNop())

	return &orchestratorFixture{
		uc:        uc,
		ledger:    ledgerUC,
		movements: movements,
		capital:   capital,
		cashFlow:  cashFlow,
		linkables: linkables,
		parties:   parties,
	}
}

func (f *orchestratorFixture) seedStock(t *testing.T, productID string, qty int64) {
	t.Helper()
	_, err := f.uc.ProcessPurchase(context.Background(), orchestrator.PurchaseEvent{
		ID: "seed-" + productID,
		Lines: []orchestrator.EventLine{
			{ProductID: productID, Quantity: decimal.NewFromInt(qty), UnitValue: decimal.NewFromInt(100)},
		},
		PaymentStatus: orchestrator.PaymentStatusPending,
	})
	require.NoError(t, err)
}

func TestProcessSale_DescuentaStockYEmiteCaja(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 10)

	result, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(400)},
		},
		PaymentStatus: orchestrator.PaymentStatusPaid,
	})
	require.NoError(t, err)
	require.Len(t, result.MovementIDs, 1)
	assert.True(t, result.CashFlowEmitted)

	stock, err := f.ledger.ProjectStock(context.Background(), "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(7)))

	require.Len(t, f.cashFlow.Entries, 1)
	entry := f.cashFlow.Entries[0]
	assert.Equal(t, entity.CashFlowIn, entry.Direction, "una venta pagada emite un asiento de entrada")
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(1200)), "3 × 400")
	assert.Equal(t, "venta-1", entry.ReferenceID)
}

func TestProcessSale_PendienteNoEmiteCaja(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 10)

	result, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(2), UnitValue: decimal.NewFromInt(400)},
		},
		PaymentStatus: orchestrator.PaymentStatusPending,
	})
	require.NoError(t, err)
	assert.False(t, result.CashFlowEmitted)
	assert.Empty(t, f.cashFlow.Entries)
}

// Todo-o-nada: si la línea 2 no tiene stock, la línea 1 tampoco se aplica.
func TestProcessSale_ValidacionTodoONada(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 10)
	f.seedStock(t, "prod-2", 1)

	before := f.movements.Len()
	_, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(100)},
			{ProductID: "prod-2", Quantity: decimal.NewFromInt(5), UnitValue: decimal.NewFromInt(100)},
		},
		PaymentStatus: orchestrator.PaymentStatusPaid,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, before, f.movements.Len(), "la falla en una línea no deja rastro de las demás")
	assert.Empty(t, f.cashFlow.Entries, "sin movimientos no hay caja")
}

// Dos líneas del mismo producto compiten por el mismo stock: la validación
// debe agregarlas, no aprobarlas por separado.
func TestProcessSale_LineasRepetidasDelMismoProducto(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 5)

	before := f.movements.Len()
	_, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(100)},
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(100)},
		},
		PaymentStatus: orchestrator.PaymentStatusPaid,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "3 + 3 sobre 5 disponibles debe rechazarse entero")
	assert.Equal(t, before, f.movements.Len(), "la venta rechazada no debe consumir stock de a pedazos")

	stock, err := f.ledger.ProjectStock(context.Background(), "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(5)), "el stock queda intacto, proyectó %s", stock)

	// El agregado que sí alcanza (2 + 3 = 5) procede completo.
	result, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-2",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(2), UnitValue: decimal.NewFromInt(100)},
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(100)},
		},
		PaymentStatus: orchestrator.PaymentStatusPending,
	})
	require.NoError(t, err)
	require.Len(t, result.MovementIDs, 2)

	stock, err = f.ledger.ProjectStock(context.Background(), "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.IsZero())
}

func TestProcessSale_ReplayDelEventoNoDuplica(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 10)

	event := orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(400)},
		},
		PaymentStatus: orchestrator.PaymentStatusPending,
	}
	first, err := f.uc.ProcessSale(context.Background(), event)
	require.NoError(t, err)

	// El módulo de ventas reintenta el evento completo (timeout ambiguo).
	second, err := f.uc.ProcessSale(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, first.MovementIDs, second.MovementIDs, "el replay devuelve los mismos movimientos")

	stock, err := f.ledger.ProjectStock(context.Background(), "prod-1", nil)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(7)), "10 - 3, una sola vez")
}

func TestProcessSale_ValidaLineas(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{ID: "", Lines: nil})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(-2), UnitValue: decimal.NewFromInt(100)},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "las cantidades de un evento llegan siempre positivas")
}

func TestProcessSale_DisparaConciliacionSinBloquear(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.seedStock(t, "prod-1", 10)
	f.parties.Put(&entity.Party{ID: "C1", Name: "Ahmed Hassan", Phone: "0501234567", Type: entity.PartyTypeCustomer})
	f.linkables.Put(&entity.Linkable{
		ID:               "chk-1",
		Type:             entity.LinkableTypeCheck,
		Amount:           decimal.NewFromInt(1200),
		CounterpartyName: "Ahmed Hassan",
		Phone:            "0501234567",
	})

	result, err := f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-1",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(3), UnitValue: decimal.NewFromInt(400)},
		},
		PaymentStatus:  orchestrator.PaymentStatusPaid,
		InstrumentID:   "chk-1",
		InstrumentType: entity.LinkableTypeCheck,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Linking, "la venta con instrumento dispara la conciliación")
	assert.Equal(t, 1, result.Linking.SuccessfulLinks)

	// Instrumento inexistente: la conciliación falla en silencio, la venta no.
	result, err = f.uc.ProcessSale(context.Background(), orchestrator.SaleEvent{
		ID: "venta-2",
		Lines: []orchestrator.EventLine{
			{ProductID: "prod-1", Quantity: decimal.NewFromInt(1), UnitValue: decimal.NewFromInt(400)},
		},
		PaymentStatus:  orchestrator.PaymentStatusPending,
		InstrumentID:   "chk-fantasma",
		InstrumentType: entity.LinkableTypeCheck,
	})
	require.NoError(t, err, "la ambigüedad de conciliación nunca bloquea la venta")
	assert.Nil(t, result.Linking)
}

// ── Transacciones de inversionista ────────────────────────────────────────────

func TestProcessInvestorPurchase_RecalculaCapitalRestante(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.capital.Set("inv-1", decimal.NewFromInt(10000))

	result, err := f.uc.ProcessInvestorPurchase(context.Background(), orchestrator.InvestorTransaction{
		ID:         "itx-1",
		InvestorID: "inv-1",
		ProductID:  "prod-1",
		Quantity:   decimal.NewFromInt(10),
		Value:      decimal.NewFromInt(3000),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.MovementID)
	assert.True(t, result.RemainingCapital.Equal(decimal.NewFromInt(7000)), "10000 - 3000")

	stock, err := f.ledger.ProjectStock(context.Background(), "prod-1", strPtr("inv-1"))
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(10)))
}

func TestProcessInvestorSale_ValidaLaParticionDelInversionista(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.capital.Set("inv-1", decimal.NewFromInt(10000))
	f.seedStock(t, "prod-1", 100) // stock de la empresa, no del inversionista

	// El inversionista no tiene unidades: su venta debe rechazarse aunque la
	// empresa tenga de sobra.
	_, err := f.uc.ProcessInvestorSale(context.Background(), orchestrator.InvestorTransaction{
		ID:         "itx-1",
		InvestorID: "inv-1",
		ProductID:  "prod-1",
		Quantity:   decimal.NewFromInt(5),
		Value:      decimal.NewFromInt(2000),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Con partición propia, la venta procede y el capital suma el ingreso.
	_, err = f.uc.ProcessInvestorPurchase(context.Background(), orchestrator.InvestorTransaction{
		ID:         "itx-2",
		InvestorID: "inv-1",
		ProductID:  "prod-1",
		Quantity:   decimal.NewFromInt(10),
		Value:      decimal.NewFromInt(3000),
	})
	require.NoError(t, err)

	result, err := f.uc.ProcessInvestorSale(context.Background(), orchestrator.InvestorTransaction{
		ID:         "itx-3",
		InvestorID: "inv-1",
		ProductID:  "prod-1",
		Quantity:   decimal.NewFromInt(4),
		Value:      decimal.NewFromInt(1800),
	})
	require.NoError(t, err)
	// 10000 - 3000 + 1800
	assert.True(t, result.RemainingCapital.Equal(decimal.NewFromInt(8800)))
}

func TestProcessInvestorTransaction_ValidaEntrada(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.uc.ProcessInvestorPurchase(context.Background(), orchestrator.InvestorTransaction{
		ID: "itx-1", InvestorID: "", ProductID: "prod-1", Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.ProcessInvestorSale(context.Background(), orchestrator.InvestorTransaction{
		ID: "itx-2", InvestorID: "inv-1", ProductID: "prod-1", Quantity: decimal.Zero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ── helper ────────────────────────────────────────────────────────────────────

func strPtr(s string) *string { return &s }
