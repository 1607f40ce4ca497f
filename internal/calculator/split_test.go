package calculator

import (
	"math"
	"testing"
)

func sumAmounts(splits []Split) float64 {
	var sum float64
	for _, s := range splits {
		sum += s.Amount
	}
	return sum
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name         string
		total        float64
		participants []Participant
		wantErr      bool
		validateFunc func(t *testing.T, splits []Split)
	}{
		{
			name:  "two-way split of 275 lands on 137.50 each",
			total: 275.0,
			participants: []Participant{
				{ID: "user:host", Name: "Host", Subtotal: 200.0},
				{ID: "guest:g1", Name: "Guest", Subtotal: 50.0},
			},
			validateFunc: func(t *testing.T, splits []Split) {
				for _, s := range splits {
					if math.Abs(s.Amount-137.50) > 0.001 {
						t.Errorf("%s amount = %v, want 137.50", s.Name, s.Amount)
					}
				}
			},
		},
		{
			name:  "remainder cents go to earliest joiners",
			total: 100.0,
			participants: []Participant{
				{ID: "a", Name: "A"},
				{ID: "b", Name: "B"},
				{ID: "c", Name: "C"},
			},
			validateFunc: func(t *testing.T, splits []Split) {
				// 10000 cents / 3 = 3333 rem 1; the first joiner pays the extra cent.
				want := []float64{33.34, 33.33, 33.33}
				for i, s := range splits {
					if math.Abs(s.Amount-want[i]) > 0.001 {
						t.Errorf("%s amount = %v, want %v", s.Name, s.Amount, want[i])
					}
				}
			},
		},
		{
			name:  "zero-item participant still receives an equal share",
			total: 33.0,
			participants: []Participant{
				{ID: "a", Name: "A", Subtotal: 30.0},
				{ID: "b", Name: "B", Subtotal: 0},
			},
			validateFunc: func(t *testing.T, splits []Split) {
				if math.Abs(splits[1].Amount-16.50) > 0.001 {
					t.Errorf("B amount = %v, want 16.50", splits[1].Amount)
				}
			},
		},
		{
			name:         "no participants should error",
			total:        10.0,
			participants: nil,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := Equal(tt.total, tt.participants)
			if (err != nil) != tt.wantErr {
				t.Errorf("Equal() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got := sumAmounts(splits); math.Abs(got-tt.total) > 0.01 {
				t.Errorf("sum of shares = %v, want %v", got, tt.total)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, splits)
			}
		})
	}
}

func TestByItem(t *testing.T) {
	tests := []struct {
		name         string
		total        float64
		taxRate      float64
		participants []Participant
		wantErr      bool
		validateFunc func(t *testing.T, splits []Split)
	}{
		{
			name:    "each participant bears own subtotal plus tax",
			total:   275.0,
			taxRate: 0.10,
			participants: []Participant{
				{ID: "user:host", Name: "Host", Subtotal: 200.0},
				{ID: "guest:g1", Name: "Guest", Subtotal: 50.0},
			},
			validateFunc: func(t *testing.T, splits []Split) {
				// Host: 200 * 1.10 = 220.00, Guest: 50 * 1.10 = 55.00
				if math.Abs(splits[0].Amount-220.0) > 0.001 {
					t.Errorf("Host amount = %v, want 220.0", splits[0].Amount)
				}
				if math.Abs(splits[1].Amount-55.0) > 0.001 {
					t.Errorf("Guest amount = %v, want 55.0", splits[1].Amount)
				}
			},
		},
		{
			name:    "zero-item participant owes nothing",
			total:   110.0,
			taxRate: 0.10,
			participants: []Participant{
				{ID: "a", Name: "A", Subtotal: 100.0},
				{ID: "b", Name: "B", Subtotal: 0},
			},
			validateFunc: func(t *testing.T, splits []Split) {
				if splits[1].Amount != 0 {
					t.Errorf("B amount = %v, want 0", splits[1].Amount)
				}
			},
		},
		{
			name:    "three equal shares sum exactly",
			total:   36.66, // subtotal 33.33 plus 10% tax rounded at the aggregate
			taxRate: 0.10,
			participants: []Participant{
				{ID: "a", Name: "A", Subtotal: 11.11},
				{ID: "b", Name: "B", Subtotal: 11.11},
				{ID: "c", Name: "C", Subtotal: 11.11},
			},
		},
		{
			name:    "rounding drift reconciled onto largest share",
			total:   0.17, // subtotal 0.15 plus tax 0.02 at the aggregate
			taxRate: 0.10,
			participants: []Participant{
				{ID: "a", Name: "A", Subtotal: 0.05},
				{ID: "b", Name: "B", Subtotal: 0.05},
				{ID: "c", Name: "C", Subtotal: 0.05},
			},
		},
		{
			name:         "no participants should error",
			total:        10.0,
			taxRate:      0.10,
			participants: nil,
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := ByItem(tt.total, tt.taxRate, tt.participants)
			if (err != nil) != tt.wantErr {
				t.Errorf("ByItem() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if got := sumAmounts(splits); math.Abs(got-tt.total) > 0.01 {
				t.Errorf("sum of shares = %v, want %v", got, tt.total)
			}
			if tt.validateFunc != nil {
				tt.validateFunc(t, splits)
			}
		})
	}
}
