// Package calculator derives per-participant payable amounts from a group
// order's aggregate totals. It is pure arithmetic: no storage, no transport.
package calculator

import (
	"fmt"
	"math"
)

// Participant is the minimal split input for one group member, in join order.
type Participant struct {
	ID       string
	Name     string
	Subtotal float64
}

// Split is one participant's calculated share.
type Split struct {
	ParticipantID string
	Name          string
	Amount        float64
}

// Equal divides total evenly across all participants. The division is done in
// integer cents; the remainder is handed out cent-by-cent to the earliest
// joiners so the shares sum exactly to total.
func Equal(total float64, participants []Participant) ([]Split, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	totalCents := toCents(total)
	n := int64(len(participants))
	base := totalCents / n
	remainder := totalCents % n

	splits := make([]Split, len(participants))
	for i, p := range participants {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		splits[i] = Split{
			ParticipantID: p.ID,
			Name:          p.Name,
			Amount:        fromCents(cents),
		}
	}
	return splits, nil
}

// ByItem charges each participant their own subtotal scaled by (1 + taxRate),
// so everyone bears tax proportional to what they ordered. Zero-item
// participants owe nothing. Per-share rounding can drift a few cents from
// total; the drift is reconciled onto the largest share so the sum matches.
func ByItem(total, taxRate float64, participants []Participant) ([]Split, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	totalCents := toCents(total)
	splits := make([]Split, len(participants))

	var assigned int64
	largest := -1
	for i, p := range participants {
		cents := toCents(p.Subtotal * (1 + taxRate))
		assigned += cents
		if largest < 0 || cents > toCents(splits[largest].Amount) {
			largest = i
		}
		splits[i] = Split{
			ParticipantID: p.ID,
			Name:          p.Name,
			Amount:        fromCents(cents),
		}
	}

	if drift := totalCents - assigned; drift != 0 && largest >= 0 {
		splits[largest].Amount = fromCents(toCents(splits[largest].Amount) + drift)
	}
	return splits, nil
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func fromCents(c int64) float64 {
	return float64(c) / 100
}
