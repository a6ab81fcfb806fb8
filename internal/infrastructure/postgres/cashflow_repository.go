package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/application/orchestrator"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

var _ orchestrator.CashFlowPublisher = (*CashFlowRepo)(nil)

// CashFlowRepo asienta las entradas de caja en PostgreSQL. La referencia es
// única: publicar dos veces el mismo evento no duplica el asiento.
type CashFlowRepo struct {
	q Querier
}

// NewCashFlowRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCashFlowRepository(q Querier) *CashFlowRepo {
	return &CashFlowRepo{q: q}
}

// Publish inserta el asiento. ON CONFLICT por referencia: replay es no-op.
func (r *CashFlowRepo) Publish(ctx context.Context, entry *entity.CashFlowEntry) error {
	query := `
		INSERT INTO cash_flow_entries (amount, direction, reference_id, date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (reference_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, query, entry.Amount, entry.Direction, entry.ReferenceID, entry.Date); err != nil {
		return fmt.Errorf("publish cash flow: %w", err)
	}
	return nil
}

var _ partition.CapitalReader = (*CapitalRepo)(nil)

// CapitalRepo capital aportado por inversionista sobre PostgreSQL. Solo
// lectura: los depósitos los administra el módulo de inversionistas.
type CapitalRepo struct {
	q Querier
}

// NewCapitalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCapitalRepository(q Querier) *CapitalRepo {
	return &CapitalRepo{q: q}
}

// TotalInvestment suma los depósitos de capital del inversionista.
func (r *CapitalRepo) TotalInvestment(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM capital_deposits WHERE owner_id = $1`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, ownerID).Scan(&total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("total investment: %w", err)
	}
	return total, nil
}
