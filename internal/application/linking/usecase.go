package linking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/domain/repository"
	"github.com/tu-usuario/gestion-core/pkg/logger"
)

// LinkableReader resuelve cheques y cuotas por id. Solo lectura: los
// instrumentos los administran los módulos de cheques y cuotas.
type LinkableReader interface {
	Get(ctx context.Context, id, linkableType string) (*entity.Linkable, error)
}

// Config política del motor de conciliación. El piso de confianza para
// auto-vincular es una decisión explícita de configuración, no un default
// escondido.
type Config struct {
	AutoLinkFloor   string          // confianza mínima para aplicar un vínculo automático
	FuzzyThreshold  float64         // similitud mínima para considerar un nombre difuso
	AmountTolerance decimal.Decimal // tolerancia relativa de proximidad de monto (ej. 0.05)
}

// DefaultConfig piso MEDIUM, similitud 0.85, tolerancia de monto 5%.
func DefaultConfig() Config {
	return Config{
		AutoLinkFloor:   entity.ConfidenceMedium,
		FuzzyThreshold:  0.85,
		AmountTolerance: decimal.NewFromFloat(0.05),
	}
}

// ReviewItem es un candidato que no alcanzó el piso: se muestra para revisión
// manual, nunca se aplica solo.
type ReviewItem struct {
	EntityID   string
	EntityType string
	Candidate  Candidate
}

// SmartLinkingResult resumen de una corrida de AutoLink.
type SmartLinkingResult struct {
	TotalProcessed  int
	SuccessfulLinks int
	Skipped         int // ya vinculados, o vínculo de usuario que prevalece
	NeedsReview     []ReviewItem
	Errors          []string
}

// UseCase es el motor de conciliación / vinculación inteligente.
type UseCase struct {
	links       repository.EntityLinkRepository
	parties     repository.PartyRepository
	outstanding repository.OutstandingRepository
	linkables   LinkableReader
	cfg         Config
	log         *logger.Logger
}

// NewUseCase construye el motor.
func NewUseCase(
	links repository.EntityLinkRepository,
	parties repository.PartyRepository,
	outstanding repository.OutstandingRepository,
	linkables LinkableReader,
	cfg Config,
	log *logger.Logger,
) *UseCase {
	if cfg.AutoLinkFloor == "" {
		cfg.AutoLinkFloor = entity.ConfidenceMedium
	}
	return &UseCase{
		links:       links,
		parties:     parties,
		outstanding: outstanding,
		linkables:   linkables,
		cfg:         cfg,
		log:         log,
	}
}

// AutoLink procesa el lote: para cada instrumento toma el mejor candidato solo
// si su confianza alcanza el piso configurado. Los de baja confianza quedan
// para revisión manual. Idempotente: dos corridas sobre el mismo lote y el
// mismo directorio producen los mismos vínculos (puntaje determinista, sin
// azar). La ambigüedad no es un error: el instrumento queda sin vincular.
func (uc *UseCase) AutoLink(ctx context.Context, linkables []*entity.Linkable) (*SmartLinkingResult, error) {
	result := &SmartLinkingResult{}
	for _, l := range linkables {
		result.TotalProcessed++

		existing, err := uc.links.Get(ctx, l.ID, l.Type)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", l.Type, l.ID, err))
			continue
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		candidates, err := uc.MatchCandidates(ctx, l)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", l.Type, l.ID, err))
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		top := candidates[0]
		if !entity.ConfidenceAtLeast(top.Confidence, uc.cfg.AutoLinkFloor) {
			result.NeedsReview = append(result.NeedsReview, ReviewItem{
				EntityID:   l.ID,
				EntityType: l.Type,
				Candidate:  top,
			})
			continue
		}

		applied, err := uc.links.Upsert(ctx, &entity.EntityLink{
			EntityID:   l.ID,
			EntityType: l.Type,
			OwnerID:    top.OwnerID,
			OwnerType:  top.OwnerType,
			Confidence: top.Confidence,
			LinkedBy:   entity.LinkedBySystem,
			CreatedAt:  time.Now(),
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", l.Type, l.ID, err))
			continue
		}
		if !applied {
			result.Skipped++
			continue
		}
		result.SuccessfulLinks++
		if uc.log != nil {
			uc.log.Info().
				Str("entity_id", l.ID).
				Str("entity_type", l.Type).
				Str("owner_id", top.OwnerID).
				Str("confidence", top.Confidence).
				Msg("vínculo automático aplicado")
		}
	}
	return result, nil
}

// ManualLink vincula por acción directa del usuario. Sobrescribe cualquier
// vínculo previo y registra LinkedBy=USER (máxima confianza implícita).
// ErrDuplicate si ya está vinculado al mismo dueño por el usuario.
func (uc *UseCase) ManualLink(ctx context.Context, entityID, entityType, ownerID, ownerType string) error {
	if entityID == "" || ownerID == "" {
		return domain.ErrInvalidInput
	}
	if entityType != entity.LinkableTypeCheck && entityType != entity.LinkableTypeInstallment {
		return domain.ErrInvalidInput
	}
	switch ownerType {
	case entity.PartyTypeCustomer, entity.PartyTypeSupplier, entity.PartyTypeEmployee:
	default:
		return domain.ErrInvalidInput
	}

	if uc.linkables != nil {
		l, err := uc.linkables.Get(ctx, entityID, entityType)
		if err != nil {
			return err
		}
		if l == nil {
			return domain.ErrNotFound
		}
	}
	party, err := uc.parties.GetByID(ctx, ownerID)
	if err != nil {
		return err
	}
	if party == nil {
		return domain.ErrNotFound
	}

	existing, err := uc.links.Get(ctx, entityID, entityType)
	if err != nil {
		return err
	}
	if existing != nil && existing.OwnerID == ownerID && existing.LinkedBy == entity.LinkedByUser {
		return domain.ErrDuplicate
	}

	_, err = uc.links.Upsert(ctx, &entity.EntityLink{
		EntityID:   entityID,
		EntityType: entityType,
		OwnerID:    ownerID,
		OwnerType:  ownerType,
		Confidence: entity.ConfidenceHigh,
		LinkedBy:   entity.LinkedByUser,
		CreatedAt:  time.Now(),
	})
	return err
}

// Unlink elimina el vínculo activo. Borra la fila del vínculo, no el
// instrumento subyacente.
func (uc *UseCase) Unlink(ctx context.Context, entityID, entityType string) error {
	if entityID == "" || entityType == "" {
		return domain.ErrInvalidInput
	}
	existing, err := uc.links.Get(ctx, entityID, entityType)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return uc.links.Delete(ctx, entityID, entityType)
}
