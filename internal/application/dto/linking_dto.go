package dto

// ManualLinkRequest vínculo por acción directa del usuario.
type ManualLinkRequest struct {
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"` // CHECK o INSTALLMENT
	OwnerID    string `json:"owner_id"`
	OwnerType  string `json:"owner_type"` // CUSTOMER, SUPPLIER o EMPLOYEE
}

// AutoLinkRequest lote de instrumentos a conciliar.
type AutoLinkRequest struct {
	Entities []AutoLinkEntity `json:"entities"`
}

// AutoLinkEntity referencia a un instrumento del lote.
type AutoLinkEntity struct {
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"`
}

// CandidateResponse candidato con su confianza.
type CandidateResponse struct {
	OwnerID    string  `json:"owner_id"`
	OwnerType  string  `json:"owner_type"`
	Confidence string  `json:"confidence"`
	Score      float64 `json:"score"`
}

// ReviewItemResponse candidato de baja confianza para revisión manual.
type ReviewItemResponse struct {
	EntityID   string            `json:"entity_id"`
	EntityType string            `json:"entity_type"`
	Candidate  CandidateResponse `json:"candidate"`
}

// SmartLinkingSummary resumen de una corrida de AutoLink.
type SmartLinkingSummary struct {
	TotalProcessed  int                  `json:"total_processed"`
	SuccessfulLinks int                  `json:"successful_links"`
	Skipped         int                  `json:"skipped"`
	NeedsReview     []ReviewItemResponse `json:"needs_review,omitempty"`
	Errors          []string             `json:"errors,omitempty"`
}
