package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/pkg/logger"
	"github.com/tu-usuario/gestion-core/pkg/retry"
)

// UseCase es la fachada que invocan los módulos externos (cierre de venta, de
// compra, transacciones de inversionista). Es el único lugar que envuelve las
// escrituras en el ejecutor de reintentos y decide cómo escala el agotamiento:
// una falla dura bloquea la transacción de origen; la ambigüedad de
// conciliación nunca la bloquea.
type UseCase struct {
	ledger    *ledger.UseCase
	partition *partition.UseCase
	linking   *linking.UseCase
	linkables linking.LinkableReader
	cashFlow  CashFlowPublisher
	retryOpts retry.Options
	log       *logger.Logger
}

// NewUseCase construye el orquestador. cashFlow y linkables pueden ser nil.
func NewUseCase(
	ledgerUC *ledger.UseCase,
	partitionUC *partition.UseCase,
	linkingUC *linking.UseCase,
	linkables linking.LinkableReader,
	cashFlow CashFlowPublisher,
	retryOpts retry.Options,
	log *logger.Logger,
) *UseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &UseCase{
		ledger:    ledgerUC,
		partition: partitionUC,
		linking:   linkingUC,
		linkables: linkables,
		cashFlow:  cashFlow,
		retryOpts: retryOpts,
		log:       log,
	}
}

// SaleResult desenlace de una venta procesada.
type SaleResult struct {
	MovementIDs     []string
	CashFlowEmitted bool
	Linking         *linking.SmartLinkingResult
}

// PurchaseResult desenlace de una compra procesada.
type PurchaseResult struct {
	MovementIDs     []string
	CashFlowEmitted bool
	Linking         *linking.SmartLinkingResult
}

// InvestorResult desenlace de una transacción de inversionista. El capital
// restante es siempre un recálculo, nunca un valor almacenado.
type InvestorResult struct {
	MovementID       string
	RemainingCapital decimal.Decimal
}

// ProcessSale valida TODAS las líneas antes de anexar CUALQUIER movimiento
// (todo-o-nada en la validación: una falla en la línea 3 de 5 no deja rastro
// de las líneas 1-2). Luego anexa una salida por línea bajo el ejecutor de
// reintentos, con clave de idempotencia referenceID:índice. Si un append
// autoritativo rechaza por stock (otra venta concurrente consumió la última
// unidad) se re-valida y se repite la secuencia una vez: las claves de
// idempotencia hacen la repetición segura para las líneas ya aplicadas.
func (uc *UseCase) ProcessSale(ctx context.Context, event SaleEvent) (*SaleResult, error) {
	if err := validateLines(event.ID, event.Lines); err != nil {
		return nil, err
	}

	// La disponibilidad se valida por producto con las cantidades agregadas:
	// dos líneas del mismo producto compiten por el mismo stock, validarlas
	// por separado dejaría pasar una venta que en conjunto no alcanza.
	requested := aggregateByProduct(event.Lines)

	var ids []string
	for pass := 1; ; pass++ {
		for _, productID := range sortedKeys(requested) {
			av, err := uc.partition.ValidateAvailability(ctx, productID, nil, requested[productID])
			if err != nil {
				return nil, err
			}
			if !av.Available {
				uc.log.Warn().
					Str("sale_id", event.ID).
					Str("product_id", productID).
					Str("shortfall", av.Shortfall.String()).
					Msg("venta rechazada por disponibilidad")
				return nil, domain.ErrInsufficientStock
			}
		}

		ids = ids[:0]
		var stockConflict bool
		for i, line := range event.Lines {
			mov := &entity.Movement{
				ProductID:      line.ProductID,
				Quantity:       line.Quantity.Neg(),
				Kind:           entity.MovementKindSale,
				OwnerType:      entity.OwnerTypeCompany,
				Value:          line.Quantity.Mul(line.UnitValue),
				ReferenceID:    event.ID,
				ReferenceType:  ReferenceTypeSale,
				IdempotencyKey: idempotencyKey(event.ID, i),
			}
			id, err := uc.appendWithRetry(ctx, mov)
			if errors.Is(err, domain.ErrInsufficientStock) {
				// No reintentar el append a ciegas: re-validar la operación.
				stockConflict = true
				break
			}
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		if !stockConflict {
			break
		}
		if pass == 2 {
			return nil, domain.ErrInsufficientStock
		}
	}

	result := &SaleResult{MovementIDs: ids}
	if event.PaymentStatus == PaymentStatusPaid {
		if err := uc.emitCashFlow(ctx, linesTotal(event.Lines), entity.CashFlowIn, event.ID); err != nil {
			return nil, err
		}
		result.CashFlowEmitted = true
	}
	result.Linking = uc.triggerReconciliation(ctx, event.InstrumentID, event.InstrumentType)
	return result, nil
}

// ProcessPurchase es el simétrico de ProcessSale: entradas de la empresa.
// Las entradas no requieren validación de disponibilidad.
func (uc *UseCase) ProcessPurchase(ctx context.Context, event PurchaseEvent) (*PurchaseResult, error) {
	if err := validateLines(event.ID, event.Lines); err != nil {
		return nil, err
	}

	var ids []string
	for i, line := range event.Lines {
		mov := &entity.Movement{
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			Kind:           entity.MovementKindPurchase,
			OwnerType:      entity.OwnerTypeCompany,
			Value:          line.Quantity.Mul(line.UnitValue),
			ReferenceID:    event.ID,
			ReferenceType:  ReferenceTypePurchase,
			IdempotencyKey: idempotencyKey(event.ID, i),
		}
		id, err := uc.appendWithRetry(ctx, mov)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	result := &PurchaseResult{MovementIDs: ids}
	if event.PaymentStatus == PaymentStatusPaid {
		if err := uc.emitCashFlow(ctx, linesTotal(event.Lines), entity.CashFlowOut, event.ID); err != nil {
			return nil, err
		}
		result.CashFlowEmitted = true
	}
	result.Linking = uc.triggerReconciliation(ctx, event.InstrumentID, event.InstrumentType)
	return result, nil
}

// ProcessInvestorPurchase registra una entrada con capital de inversionista.
func (uc *UseCase) ProcessInvestorPurchase(ctx context.Context, tx InvestorTransaction) (*InvestorResult, error) {
	if err := validateInvestorTx(tx); err != nil {
		return nil, err
	}
	mov := &entity.Movement{
		ProductID:      tx.ProductID,
		Quantity:       tx.Quantity,
		Kind:           entity.MovementKindInvestorPurchase,
		OwnerID:        &tx.InvestorID,
		OwnerType:      entity.OwnerTypeInvestor,
		Value:          tx.Value,
		ReferenceID:    tx.ID,
		ReferenceType:  ReferenceTypeInvestorTransaction,
		IdempotencyKey: idempotencyKey(tx.ID, 0),
	}
	id, err := uc.appendWithRetry(ctx, mov)
	if err != nil {
		return nil, err
	}
	return uc.investorResult(ctx, id, tx.InvestorID)
}

// ProcessInvestorSale registra una salida del stock de un inversionista.
// La disponibilidad se valida contra la partición del inversionista.
func (uc *UseCase) ProcessInvestorSale(ctx context.Context, tx InvestorTransaction) (*InvestorResult, error) {
	if err := validateInvestorTx(tx); err != nil {
		return nil, err
	}
	av, err := uc.partition.ValidateAvailability(ctx, tx.ProductID, &tx.InvestorID, tx.Quantity)
	if err != nil {
		return nil, err
	}
	if !av.Available {
		return nil, domain.ErrInsufficientStock
	}
	mov := &entity.Movement{
		ProductID:      tx.ProductID,
		Quantity:       tx.Quantity.Neg(),
		Kind:           entity.MovementKindInvestorSale,
		OwnerID:        &tx.InvestorID,
		OwnerType:      entity.OwnerTypeInvestor,
		Value:          tx.Value,
		ReferenceID:    tx.ID,
		ReferenceType:  ReferenceTypeInvestorTransaction,
		IdempotencyKey: idempotencyKey(tx.ID, 0),
	}
	id, err := uc.appendWithRetry(ctx, mov)
	if err != nil {
		return nil, err
	}
	return uc.investorResult(ctx, id, tx.InvestorID)
}

// appendWithRetry envuelve el append en el ejecutor. El append es idempotente
// por clave, así que un reintento tras un timeout ambiguo no duplica. El
// agotamiento devuelve el último error como falla dura.
func (uc *UseCase) appendWithRetry(ctx context.Context, mov *entity.Movement) (string, error) {
	id, res := retry.ExecuteValue(ctx, func(ctx context.Context) (string, error) {
		return uc.ledger.Append(ctx, mov)
	}, uc.retryOpts)
	if !res.Success {
		if res.Attempts > 1 {
			uc.log.Error().
				Err(res.Err).
				Int("attempts", res.Attempts).
				Str("idempotency_key", mov.IdempotencyKey).
				Msg("append agotó los reintentos")
		}
		return "", res.Err
	}
	return id, nil
}

// emitCashFlow publica el asiento de caja. La emisión también va con
// reintentos: perderla en silencio dejaría el libro de caja incompleto.
func (uc *UseCase) emitCashFlow(ctx context.Context, amount decimal.Decimal, direction, referenceID string) error {
	if uc.cashFlow == nil {
		return nil
	}
	entry := &entity.CashFlowEntry{
		Amount:      amount,
		Direction:   direction,
		ReferenceID: referenceID,
		Date:        time.Now(),
	}
	res := retry.Execute(ctx, func(ctx context.Context) error {
		return uc.cashFlow.Publish(ctx, entry)
	}, uc.retryOpts)
	if !res.Success {
		return res.Err
	}
	return nil
}

// triggerReconciliation dispara la vinculación del instrumento creado por el
// evento. Nunca bloquea: una falla o ambigüedad aquí deja el vínculo para
// resolución posterior y se registra en el log.
func (uc *UseCase) triggerReconciliation(ctx context.Context, instrumentID, instrumentType string) *linking.SmartLinkingResult {
	if instrumentID == "" || uc.linking == nil || uc.linkables == nil {
		return nil
	}
	l, err := uc.linkables.Get(ctx, instrumentID, instrumentType)
	if err != nil || l == nil {
		uc.log.Warn().
			Err(err).
			Str("instrument_id", instrumentID).
			Msg("no se pudo cargar el instrumento para conciliar")
		return nil
	}
	result, err := uc.linking.AutoLink(ctx, []*entity.Linkable{l})
	if err != nil {
		uc.log.Warn().Err(err).Str("instrument_id", instrumentID).Msg("conciliación diferida")
		return nil
	}
	return result
}

func (uc *UseCase) investorResult(ctx context.Context, movementID, investorID string) (*InvestorResult, error) {
	p, err := uc.partition.PartitionFor(ctx, &investorID)
	if err != nil {
		return nil, err
	}
	return &InvestorResult{MovementID: movementID, RemainingCapital: p.RemainingCapital}, nil
}

func validateLines(eventID string, lines []EventLine) error {
	if eventID == "" || len(lines) == 0 {
		return domain.ErrInvalidInput
	}
	for _, l := range lines {
		if l.ProductID == "" || !l.Quantity.IsPositive() || l.UnitValue.IsNegative() {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

func validateInvestorTx(tx InvestorTransaction) error {
	if tx.ID == "" || tx.InvestorID == "" || tx.ProductID == "" {
		return domain.ErrInvalidInput
	}
	if !tx.Quantity.IsPositive() || tx.Value.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

func linesTotal(lines []EventLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Quantity.Mul(l.UnitValue))
	}
	return total
}

// aggregateByProduct suma las cantidades pedidas por producto: las líneas
// repetidas de un mismo producto compiten por el mismo stock.
func aggregateByProduct(lines []EventLine) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		out[l.ProductID] = out[l.ProductID].Add(l.Quantity)
	}
	return out
}

// sortedKeys da un orden estable de validación (y de logs).
func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func idempotencyKey(referenceID string, line int) string {
	return fmt.Sprintf("%s:%d", referenceID, line)
}
