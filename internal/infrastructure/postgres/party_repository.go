package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

var _ repository.PartyRepository = (*PartyRepo)(nil)

// PartyRepo directorio de contrapartes sobre PostgreSQL. Solo lectura:
// las filas las administran los módulos de clientes/proveedores/RRHH.
type PartyRepo struct {
	q Querier
}

// NewPartyRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPartyRepository(q Querier) *PartyRepo {
	return &PartyRepo{q: q}
}

// GetByID obtiene la contraparte, nil si no existe.
func (r *PartyRepo) GetByID(ctx context.Context, id string) (*entity.Party, error) {
	query := `SELECT id, name, phone, type, last_activity_at FROM parties WHERE id = $1`
	var p entity.Party
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Phone, &p.Type, &p.LastActivityAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get party: %w", err)
	}
	return &p, nil
}

// ListAll devuelve el directorio completo en orden estable por id.
func (r *PartyRepo) ListAll(ctx context.Context) ([]*entity.Party, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, phone, type, last_activity_at FROM parties ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	defer rows.Close()
	var out []*entity.Party
	for rows.Next() {
		var p entity.Party
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Type, &p.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

var _ repository.OutstandingRepository = (*OutstandingRepo)(nil)

// OutstandingRepo facturas/deudas pendientes sobre PostgreSQL. Solo lectura.
type OutstandingRepo struct {
	q Querier
}

// NewOutstandingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOutstandingRepository(q Querier) *OutstandingRepo {
	return &OutstandingRepo{q: q}
}

// ListByOwner devuelve los documentos pendientes de una contraparte.
func (r *OutstandingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entity.OutstandingDocument, error) {
	query := `SELECT id, owner_id, amount, issued_at FROM outstanding_documents WHERE owner_id = $1 ORDER BY issued_at DESC`
	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list outstanding: %w", err)
	}
	defer rows.Close()
	var out []*entity.OutstandingDocument
	for rows.Next() {
		var d entity.OutstandingDocument
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Amount, &d.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan outstanding: %w", err)
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
