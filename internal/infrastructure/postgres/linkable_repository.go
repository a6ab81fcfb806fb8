package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

var _ linking.LinkableReader = (*LinkableRepo)(nil)

// LinkableRepo lectura de cheques y cuotas sobre PostgreSQL. Los instrumentos
// los administran los módulos de cheques y cuotas; el núcleo solo los lee
// para conciliar. El vínculo activo, si existe, se resuelve con un LEFT JOIN.
type LinkableRepo struct {
	q Querier
}

// NewLinkableRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLinkableRepository(q Querier) *LinkableRepo {
	return &LinkableRepo{q: q}
}

// Get obtiene el instrumento con su dueño vinculado (si lo hay), nil si no existe.
func (r *LinkableRepo) Get(ctx context.Context, id, linkableType string) (*entity.Linkable, error) {
	query := `
		SELECT l.id, l.type, l.amount, l.counterparty_name, l.phone, l.due_date, l.status,
		       el.owner_id, COALESCE(el.owner_type, '')
		FROM linkables l
		LEFT JOIN entity_links el ON el.entity_id = l.id AND el.entity_type = l.type
		WHERE l.id = $1 AND l.type = $2`
	var out entity.Linkable
	var ownerID *string
	err := r.q.QueryRow(ctx, query, id, linkableType).Scan(
		&out.ID, &out.Type, &out.Amount, &out.CounterpartyName, &out.Phone,
		&out.DueDate, &out.Status, &ownerID, &out.OwnerType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get linkable: %w", err)
	}
	out.OwnerID = ownerID
	return &out, nil
}
