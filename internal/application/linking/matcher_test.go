package linking_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
	"github.com/tu-usuario/gestion-core/internal/infrastructure/memory"
	"github.com/tu-usuario/gestion-core/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Motor de puntaje de candidatos. El directorio se siembra en memoria; el
// puntaje y el desempate deben ser deterministas: mismo directorio, misma
// secuencia.
// ──────────────────────────────────────────────────────────────────────────────

type linkingFixture struct {
	uc          *linking.UseCase
	links       *memory.EntityLinkRepo
	parties     *memory.PartyRepo
	outstanding *memory.OutstandingRepo
	linkables   *memory.LinkableStore
}

func newLinkingFixture(cfg linking.Config) *linkingFixture {
	f := &linkingFixture{
		links:       memory.NewEntityLinkRepository(),
		parties:     memory.NewPartyRepository(),
		outstanding: memory.NewOutstandingRepository(),
		linkables:   memory.NewLinkableStore(),
	}
	f.uc = linking.NewUseCase(f.links, f.parties, f.outstanding, f.linkables, cfg, logger.NewNop())
	return f
}

func seedParty(f *linkingFixture, id, name, phone, partyType string) {
	f.parties.Put(&entity.Party{
		ID:             id,
		Name:           name,
		Phone:          phone,
		Type:           partyType,
		LastActivityAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	})
}

func check(id, counterparty, phone string, amount int64) *entity.Linkable {
	return &entity.Linkable{
		ID:               id,
		Type:             entity.LinkableTypeCheck,
		Amount:           decimal.NewFromInt(amount),
		CounterpartyName: counterparty,
		Phone:            phone,
	}
}

func TestMatchCandidates_NombreExactoMasTelefonoEsAlta(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "C7", "Ahmed Hassan", "0501234567", entity.PartyTypeCustomer)
	seedParty(f, "C9", "Ahmed Hasan", "0509999999", entity.PartyTypeCustomer)

	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "ahmed hassan", "0501234567", 1200))
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	top := candidates[0]
	assert.Equal(t, "C7", top.OwnerID, "nombre exacto + teléfono debe ganar sobre el nombre parecido")
	assert.Equal(t, entity.ConfidenceHigh, top.Confidence)
}

func TestMatchCandidates_MontoExactoEsAltaSinNombre(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "P1", "Distribuidora Norte", "", entity.PartyTypeSupplier)
	f.outstanding.Put(&entity.OutstandingDocument{ID: "doc-1", OwnerID: "P1", Amount: decimal.NewFromInt(1200)})

	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "nombre que no existe", "", 1200))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, entity.ConfidenceHigh, candidates[0].Confidence, "monto exacto contra deuda pendiente es confianza alta")
}

func TestMatchCandidates_NombreDifusoEsBaja(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "C1", "Mohammed Alfarsi", "", entity.PartyTypeCustomer)

	// Un typo de una letra sobre un nombre largo queda sobre el umbral 0.85.
	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "Mohamed Alfarsi", "", 500))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, entity.ConfidenceLow, candidates[0].Confidence, "similitud difusa sola es confianza baja")
}

func TestMatchCandidates_NormalizacionDeDiacriticos(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "C1", "José Pérez", "", entity.PartyTypeCustomer)

	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "  jose   PEREZ ", "", 0))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "C1", candidates[0].OwnerID, "acentos, mayúsculas y espacios no deben impedir el match exacto")
	assert.Equal(t, entity.ConfidenceMedium, candidates[0].Confidence, "nombre exacto sin teléfono ni monto es confianza media")
}

func TestMatchCandidates_SinSoporteNoHayCandidatos(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "C1", "Carlos Gómez", "0501111111", entity.PartyTypeCustomer)

	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "nombre totalmente distinto", "", 999))
	require.NoError(t, err)
	assert.Empty(t, candidates, "nunca adivinar: sin señal, secuencia vacía")
}

func TestMatchCandidates_DesempatePorTipoDeContraparte(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	// Mismo nombre, mismo puntaje: cliente > proveedor > empleado.
	seedParty(f, "E1", "Juan Torres", "", entity.PartyTypeEmployee)
	seedParty(f, "S1", "Juan Torres", "", entity.PartyTypeSupplier)
	seedParty(f, "C1", "Juan Torres", "", entity.PartyTypeCustomer)

	candidates, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "Juan Torres", "", 0))
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "C1", candidates[0].OwnerID)
	assert.Equal(t, "S1", candidates[1].OwnerID)
	assert.Equal(t, "E1", candidates[2].OwnerID)
}

func TestMatchCandidates_Determinista(t *testing.T) {
	f := newLinkingFixture(linking.DefaultConfig())
	seedParty(f, "C1", "Ana María López", "0501234567", entity.PartyTypeCustomer)
	seedParty(f, "C2", "Ana Maria Lopez", "", entity.PartyTypeCustomer)
	seedParty(f, "S1", "Ana M. López", "", entity.PartyTypeSupplier)

	first, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "ana maria lopez", "", 700))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := f.uc.MatchCandidates(context.Background(), check("chk-1", "ana maria lopez", "", 700))
		require.NoError(t, err)
		assert.Equal(t, first, again, "misma entrada y mismo directorio deben dar la misma secuencia")
	}
}

func TestNormalizeName_Canonico(t *testing.T) {
	assert.Equal(t, "jose perez", linking.NormalizeName("  José   PÉREZ "))
	assert.Equal(t, "ahmed hassan", linking.NormalizeName("Ahmed Hassan"))
	assert.Equal(t, "", linking.NormalizeName("   "))
}

func TestNormalizePhone_SoloDigitos(t *testing.T) {
	assert.Equal(t, "0501234567", linking.NormalizePhone("+050-123-4567"))
	assert.Equal(t, "", linking.NormalizePhone("sin número"))
}
