package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia del log de movimientos.
// El log es append-only: no hay Update ni Delete.
type MovementRepository interface {
	// Append persiste el movimiento. Si ya existe uno con la misma clave de
	// idempotencia devuelve su ID con inserted=false (replay, no-op).
	Append(ctx context.Context, movement *entity.Movement) (id string, inserted bool, err error)
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error)
	// ListByProductOwner pagina los movimientos de un par (producto, dueño) en
	// orden ascendente por fecha de creación. ownerID nil = la empresa;
	// para agregar sobre todos los dueños usar ListByProduct.
	ListByProductOwner(ctx context.Context, productID string, ownerID *string, limit, offset int) ([]*entity.Movement, error)
	ListByProduct(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error)
	ListByOwner(ctx context.Context, ownerID *string, limit, offset int) ([]*entity.Movement, error)
	// SumQuantity replay agregado: Σ quantity del par (producto, dueño).
	// ownerID nil = la empresa. Con productID vacío suma todos los productos.
	SumQuantity(ctx context.Context, productID string, ownerID *string) (decimal.Decimal, error)
	// SumQuantityAllOwners agrega el producto a través de todos los dueños.
	SumQuantityAllOwners(ctx context.Context, productID string) (decimal.Decimal, error)
	// ListPairs devuelve los pares (producto, dueño) con al menos un movimiento.
	ListPairs(ctx context.Context) ([]entity.StockPair, error)
}

// StockLevelRepository mantiene la caché materializada de stock por
// (producto, dueño). Reconstruible desde MovementRepository; no autoritativa.
type StockLevelRepository interface {
	Get(ctx context.Context, productID string, ownerID *string) (*entity.StockLevel, error)
	Upsert(ctx context.Context, level *entity.StockLevel) error
	DeleteAll(ctx context.Context) error
}
