package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/gestion-core/internal/application/dto"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/application/orchestrator"
	"github.com/tu-usuario/gestion-core/internal/domain"
)

// EventsHandler recibe los eventos de negocio (ventas, compras, transacciones
// de inversionista) y los entrega al orquestador.
type EventsHandler struct {
	uc *orchestrator.UseCase
}

// NewEventsHandler construye el handler.
func NewEventsHandler(uc *orchestrator.UseCase) *EventsHandler {
	return &EventsHandler{uc: uc}
}

// ProcessSale registra una venta completada: valida todas las líneas, anexa
// las salidas al libro y dispara caja y conciliación según corresponda.
func (h *EventsHandler) ProcessSale(c *fiber.Ctx) error {
	var in dto.SaleEventRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.ProcessSale(c.Context(), orchestrator.SaleEvent{
		ID:             in.ID,
		Lines:          toEventLines(in.Lines),
		CustomerRef:    in.CustomerRef,
		PaymentStatus:  in.PaymentStatus,
		InstrumentID:   in.InstrumentID,
		InstrumentType: in.InstrumentType,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EventResultResponse{
		MovementIDs:     result.MovementIDs,
		CashFlowEmitted: result.CashFlowEmitted,
		Linking:         toLinkingSummary(result.Linking),
	})
}

// ProcessPurchase registra una compra completada (entradas de la empresa).
func (h *EventsHandler) ProcessPurchase(c *fiber.Ctx) error {
	var in dto.PurchaseEventRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	result, err := h.uc.ProcessPurchase(c.Context(), orchestrator.PurchaseEvent{
		ID:             in.ID,
		Lines:          toEventLines(in.Lines),
		SupplierRef:    in.SupplierRef,
		PaymentStatus:  in.PaymentStatus,
		InstrumentID:   in.InstrumentID,
		InstrumentType: in.InstrumentType,
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EventResultResponse{
		MovementIDs:     result.MovementIDs,
		CashFlowEmitted: result.CashFlowEmitted,
		Linking:         toLinkingSummary(result.Linking),
	})
}

// ProcessInvestorTransaction registra una compra o venta con capital de
// inversionista según el campo kind.
func (h *EventsHandler) ProcessInvestorTransaction(c *fiber.Ctx) error {
	var in dto.InvestorTransactionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	tx := orchestrator.InvestorTransaction{
		ID:         in.ID,
		InvestorID: in.InvestorID,
		ProductID:  in.ProductID,
		Quantity:   in.Quantity,
		Value:      in.Value,
	}

	var (
		result *orchestrator.InvestorResult
		err    error
	)
	switch in.Kind {
	case "PURCHASE":
		result, err = h.uc.ProcessInvestorPurchase(c.Context(), tx)
	case "SALE":
		result, err = h.uc.ProcessInvestorSale(c.Context(), tx)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "kind debe ser PURCHASE o SALE"})
	}
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.InvestorResultResponse{
		MovementID:       result.MovementID,
		RemainingCapital: result.RemainingCapital,
	})
}

func toEventLines(in []dto.EventLineRequest) []orchestrator.EventLine {
	out := make([]orchestrator.EventLine, 0, len(in))
	for _, l := range in {
		out = append(out, orchestrator.EventLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitValue: l.UnitValue,
		})
	}
	return out
}

func toLinkingSummary(r *linking.SmartLinkingResult) *dto.SmartLinkingSummary {
	if r == nil {
		return nil
	}
	out := &dto.SmartLinkingSummary{
		TotalProcessed:  r.TotalProcessed,
		SuccessfulLinks: r.SuccessfulLinks,
		Skipped:         r.Skipped,
		Errors:          r.Errors,
	}
	for _, item := range r.NeedsReview {
		out.NeedsReview = append(out.NeedsReview, dto.ReviewItemResponse{
			EntityID:   item.EntityID,
			EntityType: item.EntityType,
			Candidate: dto.CandidateResponse{
				OwnerID:    item.Candidate.OwnerID,
				OwnerType:  item.Candidate.OwnerType,
				Confidence: item.Candidate.Confidence,
				Score:      item.Candidate.Score,
			},
		})
	}
	return out
}

// mapDomainError traduce los errores de dominio a códigos HTTP.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
