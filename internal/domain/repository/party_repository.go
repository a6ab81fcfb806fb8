package repository

import (
	"context"

	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// PartyRepository es el directorio de contrapartes (clientes, proveedores,
// empleados). Solo lectura: lo administran los módulos externos.
type PartyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Party, error)
	ListAll(ctx context.Context) ([]*entity.Party, error)
}

// OutstandingRepository lista facturas/deudas pendientes por contraparte.
// Solo lectura; alimenta el puntaje por proximidad de monto.
type OutstandingRepository interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.OutstandingDocument, error)
}
