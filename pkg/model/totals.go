package model

import "github.com/shopspring/decimal"

type Totals struct {
	Total      decimal.Decimal `json:"total"`
	Individual decimal.Decimal `json:"individual"`
}

// Share is one contributor's part of the basket.
type Share struct {
	Participant string          `json:"participant"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ItemCount   int             `json:"item_count"`
}

type Summary struct {
	Code          string          `json:"basket_code"`
	Participant   string          `json:"participant,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Individual    decimal.Decimal `json:"individual"`
	ByParticipant []Share         `json:"by_participant"`
}
