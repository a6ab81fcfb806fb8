package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla movements es append-only: solo INSERT, con índice único sobre
// idempotency_key. En la columna owner_id, '' representa a la empresa.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, product_id, quantity, kind, owner_id, owner_type, value, reference_id, reference_type, idempotency_key, date, created_at, notes`

// Append inserta el movimiento. Un replay (misma clave de idempotencia)
// no inserta y devuelve el ID del movimiento original.
func (r *MovementRepo) Append(ctx context.Context, movement *entity.Movement) (string, bool, error) {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (idempotency_key) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		movement.ID, movement.ProductID, movement.Quantity, movement.Kind,
		ownerParam(movement.OwnerID), movement.OwnerType, movement.Value,
		movement.ReferenceID, movement.ReferenceType, movement.IdempotencyKey,
		movement.Date, movement.CreatedAt, movement.Notes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Carrera sobre otra constraint única: tratar como replay.
			existing, lookupErr := r.GetByIdempotencyKey(ctx, movement.IdempotencyKey)
			if lookupErr == nil && existing != nil {
				return existing.ID, false, nil
			}
		}
		return "", false, fmt.Errorf("append movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.GetByIdempotencyKey(ctx, movement.IdempotencyKey)
		if err != nil {
			return "", false, err
		}
		if existing == nil {
			return "", false, fmt.Errorf("append movement: replay sin fila previa (clave %s)", movement.IdempotencyKey)
		}
		return existing.ID, false, nil
	}
	return movement.ID, true, nil
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var owner string
	err := row.Scan(&m.ID, &m.ProductID, &m.Quantity, &m.Kind, &owner, &m.OwnerType,
		&m.Value, &m.ReferenceID, &m.ReferenceType, &m.IdempotencyKey,
		&m.Date, &m.CreatedAt, &m.Notes)
	if err != nil {
		return nil, err
	}
	m.OwnerID = ownerFromColumn(owner)
	return &m, nil
}

// GetByID obtiene un movimiento por ID, nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// GetByIdempotencyKey obtiene el movimiento con esa clave, nil si no existe.
func (r *MovementRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE idempotency_key = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement by key: %w", err)
	}
	return m, nil
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	var out []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListByProductOwner pagina el par (producto, dueño), ascendente por creación.
func (r *MovementRepo) ListByProductOwner(ctx context.Context, productID string, ownerID *string, limit, offset int) ([]*entity.Movement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM movements
		WHERE product_id = $1 AND owner_id = $2
		ORDER BY created_at ASC, id ASC LIMIT $3 OFFSET $4`
	return r.list(ctx, query, productID, ownerParam(ownerID), limit, offset)
}

// ListByProduct pagina el producto sobre todos los dueños, con rango opcional de fechas.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE product_id = $1`
	args := []any{productID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND date <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)
	return r.list(ctx, query, args...)
}

// ListByOwner pagina todos los movimientos de un dueño.
func (r *MovementRepo) ListByOwner(ctx context.Context, ownerID *string, limit, offset int) ([]*entity.Movement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM movements
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, ownerParam(ownerID), limit, offset)
}

// SumQuantity replay agregado del par (producto, dueño). productID vacío suma
// todos los productos del dueño.
func (r *MovementRepo) SumQuantity(ctx context.Context, productID string, ownerID *string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(quantity), 0) FROM movements
		WHERE ($1 = '' OR product_id = $1) AND owner_id = $2`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, productID, ownerParam(ownerID)).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum quantity: %w", err)
	}
	return sum, nil
}

// SumQuantityAllOwners agrega el producto sobre todos los dueños.
func (r *MovementRepo) SumQuantityAllOwners(ctx context.Context, productID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM movements WHERE product_id = $1`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, productID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum quantity all owners: %w", err)
	}
	return sum, nil
}

// ListPairs devuelve los pares (producto, dueño) con al menos un movimiento.
func (r *MovementRepo) ListPairs(ctx context.Context) ([]entity.StockPair, error) {
	query := `SELECT DISTINCT product_id, owner_id FROM movements ORDER BY product_id, owner_id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pairs: %w", err)
	}
	defer rows.Close()
	var out []entity.StockPair
	for rows.Next() {
		var productID, owner string
		if err := rows.Scan(&productID, &owner); err != nil {
			return nil, fmt.Errorf("scan pair: %w", err)
		}
		out = append(out, entity.StockPair{ProductID: productID, OwnerID: ownerFromColumn(owner)})
	}
	return out, rows.Err()
}
