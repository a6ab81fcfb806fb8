package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/gestion-core/internal/application/dto"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// LinkingHandler expone el motor de conciliación: vinculación automática por
// lote, vínculo manual, desvinculación y consulta de candidatos.
type LinkingHandler struct {
	uc        *linking.UseCase
	linkables linking.LinkableReader
}

// NewLinkingHandler construye el handler.
func NewLinkingHandler(uc *linking.UseCase, linkables linking.LinkableReader) *LinkingHandler {
	return &LinkingHandler{uc: uc, linkables: linkables}
}

// AutoLink corre la vinculación automática sobre un lote de instrumentos.
// Los que no se resuelven quedan sin vincular; eso no es un error del lote.
func (h *LinkingHandler) AutoLink(c *fiber.Ctx) error {
	var in dto.AutoLinkRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.Entities) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "lote vacío"})
	}

	batch := make([]*entity.Linkable, 0, len(in.Entities))
	for _, e := range in.Entities {
		l, err := h.linkables.Get(c.Context(), e.EntityID, e.EntityType)
		if err != nil {
			return mapDomainError(c, err)
		}
		if l == nil {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "instrumento no encontrado: " + e.EntityID})
		}
		batch = append(batch, l)
	}

	result, err := h.uc.AutoLink(c.Context(), batch)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(toLinkingSummary(result))
}

// ManualLink vincula un instrumento a un dueño por acción directa del usuario.
func (h *LinkingHandler) ManualLink(c *fiber.Ctx) error {
	var in dto.ManualLinkRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.ManualLink(c.Context(), in.EntityID, in.EntityType, in.OwnerID, in.OwnerType); err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "vínculo registrado"})
}

// Unlink elimina el vínculo activo de un instrumento.
func (h *LinkingHandler) Unlink(c *fiber.Ctx) error {
	if err := h.uc.Unlink(c.Context(), c.Params("entityId"), c.Params("entityType")); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "vínculo eliminado"})
}

// GetCandidates devuelve los candidatos ordenados para un instrumento, sin
// aplicar ningún vínculo.
func (h *LinkingHandler) GetCandidates(c *fiber.Ctx) error {
	entityID := c.Params("entityId")
	entityType := c.Params("entityType")

	l, err := h.linkables.Get(c.Context(), entityID, entityType)
	if err != nil {
		return mapDomainError(c, err)
	}
	if l == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "instrumento no encontrado"})
	}

	candidates, err := h.uc.MatchCandidates(c.Context(), l)
	if err != nil {
		return mapDomainError(c, err)
	}
	out := make([]dto.CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, dto.CandidateResponse{
			OwnerID:    cand.OwnerID,
			OwnerType:  cand.OwnerType,
			Confidence: cand.Confidence,
			Score:      cand.Score,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "candidates": out})
}
