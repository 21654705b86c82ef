// Package aggregate computes basket totals from a ledger snapshot. Nothing is
// rounded here; callers round only when rendering.
package aggregate

import (
	"github.com/shopspring/decimal"

	"sharebasket/pkg/model"
)

const displayPlaces = 2

// Aggregate returns the basket total and the part of it added by participant.
// Attribution is an exact, case-sensitive match on added_by.
func Aggregate(items []*model.Item, participant string) model.Totals {
	totals := model.Totals{Total: decimal.Zero, Individual: decimal.Zero}
	for _, item := range items {
		line := item.LineTotal()
		totals.Total = totals.Total.Add(line)
		if item.AddedBy == participant {
			totals.Individual = totals.Individual.Add(line)
		}
	}
	return totals
}

// ByParticipant splits the basket by contributor, in order of each
// contributor's first item.
func ByParticipant(items []*model.Item) []model.Share {
	shares := make([]model.Share, 0)
	index := make(map[string]int)
	for _, item := range items {
		i, ok := index[item.AddedBy]
		if !ok {
			i = len(shares)
			index[item.AddedBy] = i
			shares = append(shares, model.Share{Participant: item.AddedBy, Subtotal: decimal.Zero})
		}
		shares[i].Subtotal = shares[i].Subtotal.Add(item.LineTotal())
		shares[i].ItemCount++
	}
	return shares
}

func Summarize(code string, items []*model.Item, participant string) *model.Summary {
	totals := Aggregate(items, participant)
	return &model.Summary{
		Code:          code,
		Participant:   participant,
		Total:         totals.Total,
		Individual:    totals.Individual,
		ByParticipant: ByParticipant(items),
	}
}

// Format renders an amount for display.
func Format(d decimal.Decimal) string {
	return d.StringFixed(displayPlaces)
}
