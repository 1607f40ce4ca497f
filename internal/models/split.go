package models

// Split is one participant's payable share of the final bill. A slice of
// splits always covers every participant and sums to GroupOrder.Total within
// one cent; it is derived on demand and frozen as a snapshot at checkout.
type Split struct {
	// ParticipantID is the identity key of the participant.
	ParticipantID string `json:"participantId"`

	// Name is the participant's display name, for rendering.
	Name string `json:"name"`

	// Amount is what this participant pays, in currency units.
	Amount float64 `json:"amount"`
}
