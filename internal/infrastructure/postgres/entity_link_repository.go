package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.EntityLinkRepository = (*EntityLinkRepo)(nil)

// EntityLinkRepo tabla de vínculos sobre PostgreSQL. Clave primaria
// (entity_type, entity_id): a lo sumo un vínculo activo por instrumento.
type EntityLinkRepo struct {
	q Querier
}

// NewEntityLinkRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEntityLinkRepository(q Querier) *EntityLinkRepo {
	return &EntityLinkRepo{q: q}
}

// Upsert reemplaza el vínculo activo. La cláusula WHERE implementa la regla de
// conflicto: último escritor gana salvo que el existente sea del usuario y el
// nuevo del sistema (applied=false, sin error), sin importar el orden.
func (r *EntityLinkRepo) Upsert(ctx context.Context, link *entity.EntityLink) (bool, error) {
	query := `
		INSERT INTO entity_links (entity_id, entity_type, owner_id, owner_type, confidence, linked_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			owner_type = EXCLUDED.owner_type,
			confidence = EXCLUDED.confidence,
			linked_by = EXCLUDED.linked_by,
			created_at = EXCLUDED.created_at
		WHERE NOT (entity_links.linked_by = 'USER' AND EXCLUDED.linked_by = 'SYSTEM')`
	tag, err := r.q.Exec(ctx, query,
		link.EntityID, link.EntityType, link.OwnerID, link.OwnerType,
		link.Confidence, link.LinkedBy, link.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert entity link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get obtiene el vínculo activo, nil si no existe.
func (r *EntityLinkRepo) Get(ctx context.Context, entityID, entityType string) (*entity.EntityLink, error) {
	query := `
		SELECT entity_id, entity_type, owner_id, owner_type, confidence, linked_by, created_at
		FROM entity_links WHERE entity_type = $1 AND entity_id = $2`
	var l entity.EntityLink
	err := r.q.QueryRow(ctx, query, entityType, entityID).Scan(
		&l.EntityID, &l.EntityType, &l.OwnerID, &l.OwnerType,
		&l.Confidence, &l.LinkedBy, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get entity link: %w", err)
	}
	return &l, nil
}

// Delete elimina la fila del vínculo (no el instrumento subyacente).
func (r *EntityLinkRepo) Delete(ctx context.Context, entityID, entityType string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM entity_links WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID); err != nil {
		return fmt.Errorf("delete entity link: %w", err)
	}
	return nil
}

// ListByOwner pagina los vínculos de un dueño.
func (r *EntityLinkRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.EntityLink, error) {
	query := `
		SELECT entity_id, entity_type, owner_id, owner_type, confidence, linked_by, created_at
		FROM entity_links WHERE owner_id = $1
		ORDER BY entity_type, entity_id LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list entity links: %w", err)
	}
	defer rows.Close()
	var out []*entity.EntityLink
	for rows.Next() {
		var l entity.EntityLink
		if err := rows.Scan(&l.EntityID, &l.EntityType, &l.OwnerID, &l.OwnerType,
			&l.Confidence, &l.LinkedBy, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity link: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
