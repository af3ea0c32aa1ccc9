package models

// Requests for the portfolio HTTP endpoints. Defined in domain for
// consistency and reuse.

type AddHoldingRequest struct {
	Symbol        string  `json:"symbol" validate:"required,min=1,max=12"`
	PurchaseDate  string  `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	PurchasePrice float64 `json:"purchase_price" validate:"required,gt=0"`
	Quantity      float64 `json:"quantity" validate:"required,gt=0"`
	Type          string  `json:"type" default:"Buy" validate:"oneof=Buy Sell"`
}

type MACDRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Fast   int    `query:"fast" json:"fast" default:"12" validate:"gte=2,lte=100"`
	Slow   int    `query:"slow" json:"slow" default:"26" validate:"gte=3,lte=400"`
	Signal int    `query:"signal" json:"signal" default:"9" validate:"gte=1,lte=100"`
}

type WeeklySummaryRequest struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `query:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

type RealtimeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type ValuationRequest struct {
	AsOf string `query:"as_of" json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}
