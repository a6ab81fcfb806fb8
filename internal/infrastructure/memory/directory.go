package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.PartyRepository = (*PartyRepo)(nil)

// PartyRepo directorio de contrapartes en memoria (solo lectura para el
// núcleo; Put existe para sembrar datos).
type PartyRepo struct {
	mu      sync.RWMutex
	parties map[string]*entity.Party
}

// NewPartyRepository construye el directorio vacío.
func NewPartyRepository() *PartyRepo {
	return &PartyRepo{parties: make(map[string]*entity.Party)}
}

// Put siembra o reemplaza una contraparte.
func (r *PartyRepo) Put(p *entity.Party) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.parties[p.ID] = &cp
}

// GetByID devuelve la contraparte o nil.
func (r *PartyRepo) GetByID(_ context.Context, id string) (*entity.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// ListAll devuelve el directorio completo en orden estable por id.
func (r *PartyRepo) ListAll(_ context.Context) ([]*entity.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Party, 0, len(r.parties))
	for _, p := range r.parties {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ repository.OutstandingRepository = (*OutstandingRepo)(nil)

// OutstandingRepo facturas/deudas pendientes en memoria.
type OutstandingRepo struct {
	mu   sync.RWMutex
	docs []*entity.OutstandingDocument
}

// NewOutstandingRepository construye la lista vacía.
func NewOutstandingRepository() *OutstandingRepo {
	return &OutstandingRepo{}
}

// Put siembra un documento pendiente.
func (r *OutstandingRepo) Put(d *entity.OutstandingDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.docs = append(r.docs, &cp)
}

// ListByOwner devuelve los documentos pendientes de una contraparte.
func (r *OutstandingRepo) ListByOwner(_ context.Context, ownerID string) ([]*entity.OutstandingDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.OutstandingDocument
	for _, d := range r.docs {
		if d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

// LinkableStore instrumentos (cheques, cuotas) en memoria.
type LinkableStore struct {
	mu    sync.RWMutex
	items map[string]*entity.Linkable
}

// NewLinkableStore construye el almacén vacío.
func NewLinkableStore() *LinkableStore {
	return &LinkableStore{items: make(map[string]*entity.Linkable)}
}

// Put siembra un instrumento.
func (s *LinkableStore) Put(l *entity.Linkable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.items[l.Type+"|"+l.ID] = &cp
}

// Get devuelve el instrumento o nil.
func (s *LinkableStore) Get(_ context.Context, id, linkableType string) (*entity.Linkable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.items[linkableType+"|"+id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// CapitalBook capital aportado por inversionista, en memoria.
type CapitalBook struct {
	mu      sync.RWMutex
	amounts map[string]decimal.Decimal
}

// NewCapitalBook construye el libro vacío.
func NewCapitalBook() *CapitalBook {
	return &CapitalBook{amounts: make(map[string]decimal.Decimal)}
}

// Set fija el capital aportado por un inversionista.
func (b *CapitalBook) Set(ownerID string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.amounts[ownerID] = amount
}

// TotalInvestment devuelve el capital aportado (cero si no hay registro).
func (b *CapitalBook) TotalInvestment(_ context.Context, ownerID string) (decimal.Decimal, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.amounts[ownerID], nil
}

// CashFlowRecorder acumula los asientos emitidos (tests, modo dev).
type CashFlowRecorder struct {
	mu      sync.Mutex
	Entries []*entity.CashFlowEntry
}

// NewCashFlowRecorder construye el recolector vacío.
func NewCashFlowRecorder() *CashFlowRecorder {
	return &CashFlowRecorder{}
}

// Publish guarda el asiento.
func (r *CashFlowRecorder) Publish(_ context.Context, entry *entity.CashFlowEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.Entries = append(r.Entries, &cp)
	return nil
}
