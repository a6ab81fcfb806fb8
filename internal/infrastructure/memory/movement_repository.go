// Package memory implementa los puertos del dominio sobre estructuras en
// memoria. Respalda los tests y el modo dev sin PostgreSQL; el contrato es el
// mismo que el de los adaptadores postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos en memoria, append-only.
type MovementRepo struct {
	mu    sync.RWMutex
	items []*entity.Movement
	byKey map[string]*entity.Movement
	byID  map[string]*entity.Movement
}

// NewMovementRepository construye el log vacío.
func NewMovementRepository() *MovementRepo {
	return &MovementRepo{
		byKey: make(map[string]*entity.Movement),
		byID:  make(map[string]*entity.Movement),
	}
}

func ownerKey(ownerID *string) string {
	if ownerID == nil {
		return ""
	}
	return *ownerID
}

// Append inserta el movimiento; replay de clave devuelve el original.
func (r *MovementRepo) Append(_ context.Context, movement *entity.Movement) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[movement.IdempotencyKey]; ok {
		return existing.ID, false, nil
	}
	cp := *movement
	r.items = append(r.items, &cp)
	r.byKey[cp.IdempotencyKey] = &cp
	r.byID[cp.ID] = &cp
	return cp.ID, true, nil
}

// GetByID devuelve una copia del movimiento o nil.
func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

// GetByIdempotencyKey devuelve el movimiento con esa clave o nil.
func (r *MovementRepo) GetByIdempotencyKey(_ context.Context, key string) (*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MovementRepo) filtered(match func(*entity.Movement) bool, limit, offset int) []*entity.Movement {
	var all []*entity.Movement
	for _, m := range r.items {
		if match(m) {
			cp := *m
			all = append(all, &cp)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// ListByProductOwner pagina el par (producto, dueño), ascendente.
func (r *MovementRepo) ListByProductOwner(_ context.Context, productID string, ownerID *string, limit, offset int) ([]*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filtered(func(m *entity.Movement) bool {
		return m.ProductID == productID && ownerKey(m.OwnerID) == ownerKey(ownerID)
	}, limit, offset), nil
}

// ListByProduct pagina el producto a través de todos los dueños.
func (r *MovementRepo) ListByProduct(_ context.Context, productID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filtered(func(m *entity.Movement) bool {
		if m.ProductID != productID {
			return false
		}
		if from != nil && m.Date.Before(*from) {
			return false
		}
		if to != nil && m.Date.After(*to) {
			return false
		}
		return true
	}, limit, offset), nil
}

// ListByOwner pagina todos los movimientos de un dueño.
func (r *MovementRepo) ListByOwner(_ context.Context, ownerID *string, limit, offset int) ([]*entity.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filtered(func(m *entity.Movement) bool {
		return ownerKey(m.OwnerID) == ownerKey(ownerID)
	}, limit, offset), nil
}

// SumQuantity replay agregado del par.
func (r *MovementRepo) SumQuantity(_ context.Context, productID string, ownerID *string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, m := range r.items {
		if (productID == "" || m.ProductID == productID) && ownerKey(m.OwnerID) == ownerKey(ownerID) {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum, nil
}

// SumQuantityAllOwners agrega el producto sobre todos los dueños.
func (r *MovementRepo) SumQuantityAllOwners(_ context.Context, productID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, m := range r.items {
		if m.ProductID == productID {
			sum = sum.Add(m.Quantity)
		}
	}
	return sum, nil
}

// ListPairs devuelve los pares (producto, dueño) con movimientos.
func (r *MovementRepo) ListPairs(_ context.Context) ([]entity.StockPair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]entity.StockPair)
	for _, m := range r.items {
		k := m.ProductID + "|" + ownerKey(m.OwnerID)
		if _, ok := seen[k]; !ok {
			seen[k] = entity.StockPair{ProductID: m.ProductID, OwnerID: m.OwnerID}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]entity.StockPair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, seen[k])
	}
	return pairs, nil
}

// Len cantidad de movimientos en el log (tests).
func (r *MovementRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo caché de stock por (producto, dueño) en memoria.
type StockLevelRepo struct {
	mu     sync.RWMutex
	levels map[string]*entity.StockLevel
}

// NewStockLevelRepository construye la caché vacía.
func NewStockLevelRepository() *StockLevelRepo {
	return &StockLevelRepo{levels: make(map[string]*entity.StockLevel)}
}

// Get devuelve el nivel o nil si no existe.
func (r *StockLevelRepo) Get(_ context.Context, productID string, ownerID *string) (*entity.StockLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.levels[productID+"|"+ownerKey(ownerID)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// Upsert crea o reemplaza el nivel.
func (r *StockLevelRepo) Upsert(_ context.Context, level *entity.StockLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *level
	r.levels[level.ProductID+"|"+ownerKey(level.OwnerID)] = &cp
	return nil
}

// DeleteAll vacía la caché (previo a un rebuild).
func (r *StockLevelRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.levels = make(map[string]*entity.StockLevel)
	return nil
}

// TxRunner en memoria: sin transacción real, ejecuta fn con los repos dados.
// Suficiente para tests y modo dev; la atomicidad real la da el adaptador
// postgres.
type TxRunner struct {
	Movements *MovementRepo
	Levels    *StockLevelRepo
}

// NewTxRunner construye el runner con los repos compartidos.
func NewTxRunner(movements *MovementRepo, levels *StockLevelRepo) *TxRunner {
	return &TxRunner{Movements: movements, Levels: levels}
}

// Run ejecuta fn directamente sobre los repos en memoria.
func (r *TxRunner) Run(_ context.Context, fn func(
	movRepo repository.MovementRepository,
	levelRepo repository.StockLevelRepository,
) error) error {
	return fn(r.Movements, r.Levels)
}
