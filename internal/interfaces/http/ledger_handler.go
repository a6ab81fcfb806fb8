package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/gestion-core/internal/application/dto"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// LedgerHandler expone las proyecciones del libro de movimientos: stock,
// historial y particiones por dueño.
type LedgerHandler struct {
	ledger    *ledger.UseCase
	partition *partition.UseCase
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(ledgerUC *ledger.UseCase, partitionUC *partition.UseCase) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerUC, partition: partitionUC}
}

// GetStock proyecta el stock de un producto. Sin owner_id consulta el de la
// empresa; con all_owners=true agrega sobre todos los dueños.
func (h *LedgerHandler) GetStock(c *fiber.Ctx) error {
	productID := c.Params("productId")
	if c.QueryBool("all_owners") {
		stock, err := h.ledger.ProjectStockTotal(c.Context(), productID)
		if err != nil {
			return mapDomainError(c, err)
		}
		return c.JSON(dto.StockResponse{ProductID: productID, AllOwners: true, Stock: stock})
	}

	ownerID := ownerFromQuery(c)
	stock, err := h.ledger.ProjectStock(c.Context(), productID, ownerID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.StockResponse{ProductID: productID, OwnerID: ownerID, Stock: stock})
}

// GetHistory pagina el historial de movimientos del producto en orden
// temporal ascendente. Mismos filtros de dueño que GetStock.
func (h *LedgerHandler) GetHistory(c *fiber.Ctx) error {
	productID := c.Params("productId")
	limit := c.QueryInt("limit", 100)
	offset := c.QueryInt("offset", 0)

	var (
		movements []*entity.Movement
		err       error
	)
	if c.QueryBool("all_owners") {
		movements, err = h.ledger.HistoryAllOwners(c.Context(), productID, limit, offset)
	} else {
		movements, err = h.ledger.History(c.Context(), productID, ownerFromQuery(c), limit, offset)
	}
	if err != nil {
		return mapDomainError(c, err)
	}

	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementResponse{
			ID:            m.ID,
			ProductID:     m.ProductID,
			Quantity:      m.Quantity,
			Kind:          m.Kind,
			OwnerID:       m.OwnerID,
			OwnerType:     m.OwnerType,
			Value:         m.Value,
			ReferenceID:   m.ReferenceID,
			ReferenceType: m.ReferenceType,
			Date:          m.Date,
			Notes:         m.Notes,
		})
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

// GetPartition devuelve la partición de un dueño. El segmento "company"
// consulta la partición de la empresa.
func (h *LedgerHandler) GetPartition(c *fiber.Ctx) error {
	var ownerID *string
	if raw := c.Params("ownerId"); raw != "company" {
		ownerID = &raw
	}
	p, err := h.partition.PartitionFor(c.Context(), ownerID)
	if err != nil {
		return mapDomainError(c, err)
	}

	holdings := make([]dto.HoldingResponse, 0, len(p.Holdings))
	for _, hld := range p.Holdings {
		holdings = append(holdings, dto.HoldingResponse{
			ProductID:    hld.ProductID,
			CurrentStock: hld.CurrentStock,
			CurrentValue: hld.CurrentValue,
		})
	}
	return c.JSON(dto.PartitionResponse{
		OwnerID:          p.OwnerID,
		Holdings:         holdings,
		TotalInvestment:  p.TotalInvestment,
		TotalSpent:       p.TotalSpent,
		TotalSalesValue:  p.TotalSalesValue,
		RemainingCapital: p.RemainingCapital,
	})
}

// RebuildCache reconstruye las cachés de stock desde el log de movimientos.
func (h *LedgerHandler) RebuildCache(c *fiber.Ctx) error {
	if err := h.ledger.RebuildCache(c.Context()); err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"message": "cachés de stock reconstruidas"})
}

// ownerFromQuery lee el filtro de dueño: ausente = la empresa.
func ownerFromQuery(c *fiber.Ctx) *string {
	if raw := c.Query("owner_id"); raw != "" {
		return &raw
	}
	return nil
}
