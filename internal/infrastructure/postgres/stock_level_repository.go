package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo caché materializada de stock por (producto, dueño) sobre
// PostgreSQL. Reconstruible desde movements; nunca autoritativa.
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

// Get obtiene el nivel del par, nil si no existe.
func (r *StockLevelRepo) Get(ctx context.Context, productID string, ownerID *string) (*entity.StockLevel, error) {
	query := `
		SELECT product_id, owner_id, quantity, updated_at
		FROM stock_levels WHERE product_id = $1 AND owner_id = $2`
	var l entity.StockLevel
	var owner string
	err := r.q.QueryRow(ctx, query, productID, ownerParam(ownerID)).Scan(
		&l.ProductID, &owner, &l.Quantity, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	l.OwnerID = ownerFromColumn(owner)
	return &l, nil
}

// Upsert crea o reemplaza el nivel del par.
func (r *StockLevelRepo) Upsert(ctx context.Context, level *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (product_id, owner_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, owner_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		level.ProductID, ownerParam(level.OwnerID), level.Quantity, level.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}

// DeleteAll vacía la caché (previo a un rebuild desde el log).
func (r *StockLevelRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_levels`); err != nil {
		return fmt.Errorf("delete stock levels: %w", err)
	}
	return nil
}
