package linking

import (
	"context"
	"sort"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/domain"
	"github.com/tu-usuario/gestion-core/internal/domain/entity"
)

// Candidate es un dueño probable para un instrumento, con su nivel de
// confianza y el puntaje interno usado para ordenar.
type Candidate struct {
	OwnerID    string
	OwnerType  string
	Confidence string
	Score      float64
}

// Pesos del puntaje. El orden relativo importa más que los valores: nombre
// exacto > teléfono > monto exacto > monto cercano > similitud difusa.
const (
	weightExactName   = 40.0
	weightPhone       = 25.0
	weightAmountExact = 20.0
	weightAmountClose = 10.0
	weightFuzzyMax    = 15.0
)

// typeRank desempata por tipo de contraparte: cliente > proveedor > empleado.
var typeRank = map[string]int{
	entity.PartyTypeCustomer: 0,
	entity.PartyTypeSupplier: 1,
	entity.PartyTypeEmployee: 2,
}

// MatchCandidates puntúa cada contraparte del directorio contra el
// instrumento y devuelve los candidatos ordenados de mejor a peor. Secuencia
// vacía si nadie alcanza el umbral bajo: nunca adivinar. Determinista: mismo
// directorio y mismo instrumento producen la misma secuencia.
func (uc *UseCase) MatchCandidates(ctx context.Context, linkable *entity.Linkable) ([]Candidate, error) {
	if linkable == nil || linkable.CounterpartyName == "" && linkable.Phone == "" {
		return nil, domain.ErrInvalidInput
	}
	parties, err := uc.parties.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	entityName := NormalizeName(linkable.CounterpartyName)
	entityPhone := NormalizePhone(linkable.Phone)

	type scored struct {
		Candidate
		lastActivity int64
	}
	var out []scored
	for _, p := range parties {
		partyName := NormalizeName(p.Name)
		exactName := entityName != "" && partyName == entityName
		phoneMatch := entityPhone != "" && NormalizePhone(p.Phone) == entityPhone

		fuzzy := 0.0
		if !exactName && entityName != "" && partyName != "" {
			fuzzy = similarity(entityName, partyName)
		}
		fuzzyHit := fuzzy >= uc.cfg.FuzzyThreshold

		amountExact, amountClose, err := uc.amountProximity(ctx, p.ID, linkable.Amount)
		if err != nil {
			return nil, err
		}

		// Un candidato entra al pool solo si algo lo sostiene.
		if !exactName && !phoneMatch && !fuzzyHit && !amountExact {
			continue
		}

		confidence := ""
		switch {
		case (exactName && phoneMatch) || amountExact:
			confidence = entity.ConfidenceHigh
		case exactName || (fuzzyHit && amountClose):
			confidence = entity.ConfidenceMedium
		case fuzzyHit:
			confidence = entity.ConfidenceLow
		default:
			// Solo teléfono: demasiado débil por sí mismo.
			continue
		}

		score := 0.0
		if exactName {
			score += weightExactName
		}
		if phoneMatch {
			score += weightPhone
		}
		if amountExact {
			score += weightAmountExact
		} else if amountClose {
			score += weightAmountClose
		}
		score += fuzzy * weightFuzzyMax

		out = append(out, scored{
			Candidate: Candidate{
				OwnerID:    p.ID,
				OwnerType:  p.Type,
				Confidence: confidence,
				Score:      score,
			},
			lastActivity: p.LastActivityAt.UnixNano(),
		})
	}

	// Desempate explícito: puntaje, tipo (cliente > proveedor > empleado),
	// actividad más reciente, id. Nada queda al orden incidental de iteración.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if typeRank[out[i].OwnerType] != typeRank[out[j].OwnerType] {
			return typeRank[out[i].OwnerType] < typeRank[out[j].OwnerType]
		}
		if out[i].lastActivity != out[j].lastActivity {
			return out[i].lastActivity > out[j].lastActivity
		}
		return out[i].OwnerID < out[j].OwnerID
	})

	candidates := make([]Candidate, len(out))
	for i, s := range out {
		candidates[i] = s.Candidate
	}
	return candidates, nil
}

// amountProximity compara el monto del instrumento con los documentos
// pendientes de la contraparte: exacto, o dentro de la tolerancia configurada.
func (uc *UseCase) amountProximity(ctx context.Context, ownerID string, amount decimal.Decimal) (exact, close bool, err error) {
	if amount.IsZero() || uc.outstanding == nil {
		return false, false, nil
	}
	docs, err := uc.outstanding.ListByOwner(ctx, ownerID)
	if err != nil {
		return false, false, err
	}
	tolerance := amount.Mul(uc.cfg.AmountTolerance)
	for _, d := range docs {
		diff := d.Amount.Sub(amount).Abs()
		if diff.IsZero() {
			return true, true, nil
		}
		if diff.LessThanOrEqual(tolerance) {
			close = true
		}
	}
	return false, close, nil
}

// similarity es 1 - distancia/longitud máxima, en [0,1].
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(max)
}
