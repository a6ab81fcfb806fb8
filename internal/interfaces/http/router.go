package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/application/orchestrator"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	OrchestratorUC *orchestrator.UseCase
	LedgerUC       *ledger.UseCase
	PartitionUC    *partition.UseCase
	LinkingUC      *linking.UseCase
	Linkables      linking.LinkableReader
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Eventos de negocio
	events := api.Group("/events")
	eventsHandler := NewEventsHandler(deps.OrchestratorUC)
	events.Post("/sales", eventsHandler.ProcessSale)
	events.Post("/purchases", eventsHandler.ProcessPurchase)
	events.Post("/investor-transactions", eventsHandler.ProcessInvestorTransaction)

	// Libro de movimientos y particiones
	ledgerHandler := NewLedgerHandler(deps.LedgerUC, deps.PartitionUC)
	api.Get("/stock/:productId", ledgerHandler.GetStock)
	api.Post("/stock/rebuild", ledgerHandler.RebuildCache)
	api.Get("/movements/:productId", ledgerHandler.GetHistory)
	api.Get("/partitions/:ownerId", ledgerHandler.GetPartition)

	// Conciliación
	links := api.Group("/links")
	linkingHandler := NewLinkingHandler(deps.LinkingUC, deps.Linkables)
	links.Post("/auto", linkingHandler.AutoLink)
	links.Post("/manual", linkingHandler.ManualLink)
	links.Delete("/:entityType/:entityId", linkingHandler.Unlink)
	links.Get("/candidates/:entityType/:entityId", linkingHandler.GetCandidates)
}
