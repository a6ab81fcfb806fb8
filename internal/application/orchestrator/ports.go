package orchestrator

import (
	"context"

	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// CashFlowPublisher recibe los asientos de caja que el núcleo emite por cada
// venta/compra pagada. El módulo de flujo de caja es externo y dueño de su
// propio libro; aquí solo se publica el evento.
type CashFlowPublisher interface {
	Publish(ctx context.Context, entry *entity.CashFlowEntry) error
}
