package repository

import (
	"context"

	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// EntityLinkRepository define el puerto de persistencia de vínculos.
type EntityLinkRepository interface {
	// Upsert crea o reemplaza el vínculo activo de (EntityID, EntityType).
	// Regla de conflicto: último escritor gana, salvo que el existente sea
	// LinkedBy=USER y el nuevo LinkedBy=SYSTEM (el del usuario prevalece);
	// en ese caso devuelve applied=false sin error.
	Upsert(ctx context.Context, link *entity.EntityLink) (applied bool, err error)
	Get(ctx context.Context, entityID, entityType string) (*entity.EntityLink, error)
	Delete(ctx context.Context, entityID, entityType string) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.EntityLink, error)
}
