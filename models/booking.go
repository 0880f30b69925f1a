package models

import "time"

// BookingStatus is a step of the booking lifecycle.
type BookingStatus string

const (
	StatusPending         BookingStatus = "pending"
	StatusAccepted        BookingStatus = "accepted"
	StatusTraveling       BookingStatus = "traveling"
	StatusArrived         BookingStatus = "arrived"
	StatusInProgress      BookingStatus = "in_progress"
	StatusCompleted       BookingStatus = "completed"
	StatusCancelled       BookingStatus = "cancelled"
	StatusRejected        BookingStatus = "rejected"
	StatusPaymentReceived BookingStatus = "payment_received"
)

// Booking field names as stored.
const (
	FieldStatus        = "status"
	FieldAdminApproved = "adminApproved"
	FieldProviderID    = "providerId"
	FieldCreatedAt     = "createdAt"
	FieldUpdatedAt     = "updatedAt"
	FieldAcceptedAt    = "acceptedAt"
	FieldTravelingAt   = "travelingAt"
	FieldArrivedAt     = "arrivedAt"
	FieldStartedAt     = "startedAt"
	FieldCompletedAt   = "completedAt"

	FieldCancelledAt       = "cancelledAt"
	FieldRejectedAt        = "rejectedAt"
	FieldPaymentReceivedAt = "paymentReceivedAt"
)

// Booking is one service engagement between a client and a provider.
// ClientName, ProviderName and ServiceCategory are display copies only.
type Booking struct {
	ID              string        `mapstructure:"-" json:"id"`
	Status          BookingStatus `mapstructure:"status" json:"status"`
	AdminApproved   bool          `mapstructure:"adminApproved" json:"adminApproved"`
	ClientID        string        `mapstructure:"clientId" json:"clientId"`
	ProviderID      string        `mapstructure:"providerId" json:"providerId"`
	ServiceCategory string        `mapstructure:"serviceCategory" json:"serviceCategory,omitempty"`
	ClientName      string        `mapstructure:"clientName" json:"clientName,omitempty"`
	ProviderName    string        `mapstructure:"providerName" json:"providerName,omitempty"`

	Latitude         *float64     `mapstructure:"latitude" json:"latitude,omitempty"`
	Longitude        *float64     `mapstructure:"longitude" json:"longitude,omitempty"`
	Location         *GeoLocation `mapstructure:"location" json:"location,omitempty"`
	ProviderLocation *GeoLocation `mapstructure:"providerLocation" json:"providerLocation,omitempty"`

	CreatedAt   *time.Time `mapstructure:"createdAt" json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `mapstructure:"updatedAt" json:"updatedAt,omitempty"`
	AcceptedAt  *time.Time `mapstructure:"acceptedAt" json:"acceptedAt,omitempty"`
	TravelingAt *time.Time `mapstructure:"travelingAt" json:"travelingAt,omitempty"`
	ArrivedAt   *time.Time `mapstructure:"arrivedAt" json:"arrivedAt,omitempty"`
	StartedAt   *time.Time `mapstructure:"startedAt" json:"startedAt,omitempty"`
	CompletedAt *time.Time `mapstructure:"completedAt" json:"completedAt,omitempty"`

	CancelledAt       *time.Time `mapstructure:"cancelledAt" json:"cancelledAt,omitempty"`
	RejectedAt        *time.Time `mapstructure:"rejectedAt" json:"rejectedAt,omitempty"`
	PaymentReceivedAt *time.Time `mapstructure:"paymentReceivedAt" json:"paymentReceivedAt,omitempty"`

	FinalAmount   *float64 `mapstructure:"finalAmount" json:"finalAmount,omitempty"`
	ProviderPrice *float64 `mapstructure:"providerPrice" json:"providerPrice,omitempty"`
	TotalAmount   *float64 `mapstructure:"totalAmount" json:"totalAmount,omitempty"`
}

// ClientLocation returns where the job takes place.
func (b *Booking) ClientLocation() (GeoLocation, bool) {
	return ResolveLocation(b.Location, b.Latitude, b.Longitude)
}

// DisplayAmount picks finalAmount, then providerPrice, then totalAmount.
func (b *Booking) DisplayAmount() (float64, bool) {
	for _, v := range []*float64{b.FinalAmount, b.ProviderPrice, b.TotalAmount} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// HasTimestamp reports whether the phase timestamp field is set.
func (b *Booking) HasTimestamp(field string) bool {
	var ts *time.Time
	switch field {
	case FieldCreatedAt:
		ts = b.CreatedAt
	case FieldUpdatedAt:
		ts = b.UpdatedAt
	case FieldAcceptedAt:
		ts = b.AcceptedAt
	case FieldTravelingAt:
		ts = b.TravelingAt
	case FieldArrivedAt:
		ts = b.ArrivedAt
	case FieldStartedAt:
		ts = b.StartedAt
	case FieldCompletedAt:
		ts = b.CompletedAt
	case FieldCancelledAt:
		ts = b.CancelledAt
	case FieldRejectedAt:
		ts = b.RejectedAt
	case FieldPaymentReceivedAt:
		ts = b.PaymentReceivedAt
	}
	return ts != nil
}
