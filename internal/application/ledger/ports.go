package ledger

import (
	"context"

	"github.com/tu-usuario/gestion-core/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza que el movimiento y la caché de
// stock se escriban juntos o no se escriban.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		levelRepo repository.StockLevelRepository,
	) error) error
}
