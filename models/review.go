package models

// ReviewStatusDeleted marks a soft-deleted review.
const ReviewStatusDeleted = "deleted"

// Review is a client's rating of a provider.
type Review struct {
	ID         string  `mapstructure:"-" json:"id"`
	ProviderID string  `mapstructure:"providerId" json:"providerId"`
	ClientID   string  `mapstructure:"clientId" json:"clientId,omitempty"`
	BookingID  string  `mapstructure:"bookingId" json:"bookingId,omitempty"`
	Rating     float64 `mapstructure:"rating" json:"rating"` // Expected value between 1 and 5.
	Comment    string  `mapstructure:"comment" json:"comment,omitempty"`
	Status     string  `mapstructure:"status" json:"status,omitempty"`
}

// Counts reports whether the review takes part in a provider's rating.
func (r Review) Counts() bool {
	return r.Rating != 0 && r.Status != ReviewStatusDeleted
}
