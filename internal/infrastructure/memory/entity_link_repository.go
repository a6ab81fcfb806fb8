package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.EntityLinkRepository = (*EntityLinkRepo)(nil)

// EntityLinkRepo tabla de vínculos en memoria. A lo sumo un vínculo activo por
// (entidad, tipo); el del usuario prevalece sobre el del sistema.
type EntityLinkRepo struct {
	mu    sync.RWMutex
	links map[string]*entity.EntityLink
}

// NewEntityLinkRepository construye la tabla vacía.
func NewEntityLinkRepository() *EntityLinkRepo {
	return &EntityLinkRepo{links: make(map[string]*entity.EntityLink)}
}

func linkKey(entityID, entityType string) string {
	return entityType + "|" + entityID
}

// Upsert reemplaza el vínculo activo. Último escritor gana, salvo que el
// existente sea del usuario y el nuevo del sistema: applied=false, sin error.
func (r *EntityLinkRepo) Upsert(_ context.Context, link *entity.EntityLink) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := linkKey(link.EntityID, link.EntityType)
	if existing, ok := r.links[key]; ok {
		if existing.LinkedBy == entity.LinkedByUser && link.LinkedBy == entity.LinkedBySystem {
			return false, nil
		}
	}
	cp := *link
	r.links[key] = &cp
	return true, nil
}

// Get devuelve el vínculo activo o nil.
func (r *EntityLinkRepo) Get(_ context.Context, entityID, entityType string) (*entity.EntityLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.links[linkKey(entityID, entityType)]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// Delete elimina el vínculo (no el instrumento subyacente).
func (r *EntityLinkRepo) Delete(_ context.Context, entityID, entityType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, linkKey(entityID, entityType))
	return nil
}

// ListByOwner pagina los vínculos de un dueño, orden estable por entidad.
func (r *EntityLinkRepo) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*entity.EntityLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.EntityLink
	for _, l := range r.links {
		if l.OwnerID == ownerID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].EntityID < out[j].EntityID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
