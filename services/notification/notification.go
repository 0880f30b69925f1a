package notification

import (
	"context"
	"fmt"

	"servicehub/database/repository"
	"servicehub/models"
	"servicehub/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Sender abstracts the FCM client so tests do not need Firebase.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// StatusNotifier pushes booking status changes to both parties. Delivery is
// best effort; the booking write has already happened.
type StatusNotifier struct {
	Users  repository.UserRepository
	Sender Sender
}

func NewStatusNotifier(users repository.UserRepository, sender Sender) (*StatusNotifier, error) {
	if users == nil || sender == nil {
		return nil, fmt.Errorf("notification service initialization error: user repository or sender is nil")
	}
	return &StatusNotifier{Users: users, Sender: sender}, nil
}

var statusTitles = map[models.BookingStatus]string{
	models.StatusAccepted:        "Booking accepted",
	models.StatusTraveling:       "Your provider is on the way",
	models.StatusArrived:         "Your provider has arrived",
	models.StatusInProgress:      "Job started",
	models.StatusCompleted:       "Job completed",
	models.StatusCancelled:       "Booking cancelled",
	models.StatusRejected:        "Booking declined",
	models.StatusPaymentReceived: "Payment received",
}

// BookingTransitioned implements booking.Listener.
func (n *StatusNotifier) BookingTransitioned(ctx context.Context, b *models.Booking, from, to models.BookingStatus) error {
	title, ok := statusTitles[to]
	if !ok {
		return nil
	}
	data := map[string]string{
		"type":      "booking_status",
		"bookingId": b.ID,
		"from":      string(from),
		"status":    string(to),
	}

	var firstErr error
	for role, userID := range map[string]string{"client": b.ClientID, "provider": b.ProviderID} {
		if userID == "" {
			continue
		}
		body := bodyFor(role, b)
		if err := n.push(ctx, userID, role, title, body, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func bodyFor(role string, b *models.Booking) string {
	switch {
	case role == "client" && b.ProviderName != "":
		return fmt.Sprintf("%s: booking with %s is now %s.", b.ServiceCategory, b.ProviderName, b.Status)
	case role == "provider" && b.ClientName != "":
		return fmt.Sprintf("%s: booking for %s is now %s.", b.ServiceCategory, b.ClientName, b.Status)
	default:
		return fmt.Sprintf("Booking %s is now %s.", b.ID, b.Status)
	}
}

func (n *StatusNotifier) push(ctx context.Context, userID, role, title, body string, data map[string]string) error {
	u, err := n.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("push: could not find user %s: %w", userID, err)
	}
	if u.FCMToken == "" {
		utils.GetLogger().Debug("push skipped, no FCM token", zap.String("userId", userID))
		return nil
	}

	payload := make(map[string]string, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["role"] = role

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: payload,
	}
	response, err := n.Sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("push: failed to send FCM message to %s: %w", userID, err)
	}
	utils.GetLogger().Debug("push sent", zap.String("userId", userID), zap.String("response", response))
	return nil
}
