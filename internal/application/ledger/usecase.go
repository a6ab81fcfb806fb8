package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

// Config opciones del libro de movimientos.
type Config struct {
	// StockProtection rechaza salidas de la empresa que dejarían la proyección
	// negativa. No aplica a dueños inversionistas (la validación previa del
	// orquestador cubre ese caso).
	StockProtection bool
}

// UseCase es el libro de movimientos: append-only, con proyección de stock
// derivada. El stock nunca se almacena como contador mutable autoritativo; el
// agregado en memoria y la tabla stock_levels son cachés reconstruibles.
type UseCase struct {
	txRunner  TxRunner
	movements repository.MovementRepository
	levels    repository.StockLevelRepository
	cfg       Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex     // serialización por par (producto, dueño)
	cache map[string]decimal.Decimal // agregado incremental por par
}

// NewUseCase construye el libro.
func NewUseCase(txRunner TxRunner, movements repository.MovementRepository, levels repository.StockLevelRepository, cfg Config) *UseCase {
	return &UseCase{
		txRunner:  txRunner,
		movements: movements,
		levels:    levels,
		cfg:       cfg,
		locks:     make(map[string]*sync.Mutex),
		cache:     make(map[string]decimal.Decimal),
	}
}

// pairKey arma la clave de serialización del par. Dueño nil = la empresa.
func pairKey(productID string, ownerID *string) string {
	if ownerID == nil {
		return productID + "|"
	}
	return productID + "|" + *ownerID
}

// lockFor devuelve el mutex del par; los appends sobre pares distintos
// proceden en paralelo, los del mismo par se serializan.
func (uc *UseCase) lockFor(key string) *sync.Mutex {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	l, ok := uc.locks[key]
	if !ok {
		l = &sync.Mutex{}
		uc.locks[key] = l
	}
	return l
}

// Append valida y persiste un movimiento. Un replay (clave de idempotencia ya
// vista) devuelve el ID del movimiento original sin escribir nada. Una salida
// de la empresa con protección de stock activa que dejaría la proyección
// negativa falla con ErrInsufficientStock.
func (uc *UseCase) Append(ctx context.Context, mov *entity.Movement) (string, error) {
	if mov == nil || mov.ProductID == "" || mov.Quantity.IsZero() {
		return "", domain.ErrInvalidInput
	}
	if !entity.ValidKind(mov.Kind) {
		return "", domain.ErrInvalidInput
	}
	if mov.IdempotencyKey == "" {
		return "", domain.ErrInvalidInput
	}
	// El dueño determina el tipo: nil = empresa, presente = inversionista.
	if mov.OwnerID == nil && mov.OwnerType != entity.OwnerTypeCompany {
		return "", domain.ErrInvalidInput
	}
	if mov.OwnerID != nil && mov.OwnerType != entity.OwnerTypeInvestor {
		return "", domain.ErrInvalidInput
	}

	key := pairKey(mov.ProductID, mov.OwnerID)
	lock := uc.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	// Replay: la misma clave de idempotencia es un no-op exitoso, nunca un
	// segundo movimiento (un timeout ambiguo reintentado no duplica).
	existing, err := uc.movements.GetByIdempotencyKey(ctx, mov.IdempotencyKey)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return existing.ID, nil
	}

	// Chequeo autoritativo dentro de la sección serializada: la validación
	// previa del orquestador es solo consultiva.
	if uc.cfg.StockProtection && mov.Quantity.IsNegative() && mov.OwnerType == entity.OwnerTypeCompany {
		current, err := uc.projectLocked(ctx, mov.ProductID, mov.OwnerID, key)
		if err != nil {
			return "", err
		}
		if current.Add(mov.Quantity).IsNegative() {
			return "", domain.ErrInsufficientStock
		}
	}

	if mov.ID == "" {
		mov.ID = uuid.New().String()
	}
	now := time.Now()
	if mov.Date.IsZero() {
		mov.Date = now
	}
	mov.CreatedAt = now

	current, err := uc.projectLocked(ctx, mov.ProductID, mov.OwnerID, key)
	if err != nil {
		return "", err
	}
	next := current.Add(mov.Quantity)

	// Movimiento y caché persistida en la misma transacción.
	err = uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, levelRepo repository.StockLevelRepository) error {
		_, inserted, err := movRepo.Append(ctx, mov)
		if err != nil {
			return err
		}
		if !inserted {
			// Carrera con otro proceso sobre la misma clave: ya aplicado.
			return nil
		}
		return levelRepo.Upsert(ctx, &entity.StockLevel{
			ProductID: mov.ProductID,
			OwnerID:   mov.OwnerID,
			Quantity:  next,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return "", err
	}

	uc.mu.Lock()
	uc.cache[key] = next
	uc.mu.Unlock()
	return mov.ID, nil
}

// ProjectStock devuelve el stock actual del par (producto, dueño).
// Dueño nil = la empresa.
func (uc *UseCase) ProjectStock(ctx context.Context, productID string, ownerID *string) (decimal.Decimal, error) {
	if productID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	key := pairKey(productID, ownerID)
	lock := uc.lockFor(key)
	lock.Lock()
	defer lock.Unlock()
	return uc.projectLocked(ctx, productID, ownerID, key)
}

// ProjectStockTotal agrega el stock del producto sobre todos los dueños.
func (uc *UseCase) ProjectStockTotal(ctx context.Context, productID string) (decimal.Decimal, error) {
	if productID == "" {
		return decimal.Zero, domain.ErrInvalidInput
	}
	return uc.movements.SumQuantityAllOwners(ctx, productID)
}

// projectLocked resuelve la proyección con el lock del par tomado:
// caché en memoria, luego caché persistida, luego replay del log.
func (uc *UseCase) projectLocked(ctx context.Context, productID string, ownerID *string, key string) (decimal.Decimal, error) {
	uc.mu.Lock()
	qty, ok := uc.cache[key]
	uc.mu.Unlock()
	if ok {
		return qty, nil
	}
	level, err := uc.levels.Get(ctx, productID, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	if level != nil {
		uc.mu.Lock()
		uc.cache[key] = level.Quantity
		uc.mu.Unlock()
		return level.Quantity, nil
	}
	sum, err := uc.movements.SumQuantity(ctx, productID, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	uc.mu.Lock()
	uc.cache[key] = sum
	uc.mu.Unlock()
	return sum, nil
}

// History pagina los movimientos del par en orden temporal ascendente.
// Reiniciable: volver a pedir desde offset 0. Dueño nil = la empresa.
func (uc *UseCase) History(ctx context.Context, productID string, ownerID *string, limit, offset int) ([]*entity.Movement, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 100
	}
	return uc.movements.ListByProductOwner(ctx, productID, ownerID, limit, offset)
}

// HistoryAllOwners pagina los movimientos del producto sobre todos los dueños.
func (uc *UseCase) HistoryAllOwners(ctx context.Context, productID string, limit, offset int) ([]*entity.Movement, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 100
	}
	return uc.movements.ListByProduct(ctx, productID, nil, nil, limit, offset)
}

// RebuildCache reconstruye la caché (memoria y stock_levels) desde el log.
// Cualquier divergencia se corrige así, con replay; nunca parcheando la caché.
func (uc *UseCase) RebuildCache(ctx context.Context) error {
	pairs, err := uc.movements.ListPairs(ctx)
	if err != nil {
		return err
	}
	if err := uc.levels.DeleteAll(ctx); err != nil {
		return err
	}
	now := time.Now()
	fresh := make(map[string]decimal.Decimal, len(pairs))
	for _, p := range pairs {
		sum, err := uc.movements.SumQuantity(ctx, p.ProductID, p.OwnerID)
		if err != nil {
			return err
		}
		if err := uc.levels.Upsert(ctx, &entity.StockLevel{
			ProductID: p.ProductID,
			OwnerID:   p.OwnerID,
			Quantity:  sum,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		fresh[pairKey(p.ProductID, p.OwnerID)] = sum
	}
	uc.mu.Lock()
	uc.cache = fresh
	uc.mu.Unlock()
	return nil
}
