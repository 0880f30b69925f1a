// Package repository gives the services typed access to the record store.
// Repositories never retry; retries belong to the caller.
package repository

import (
	"servicehub/store"
)

// Repositories bundles one repository per collection on a shared store.
type Repositories struct {
	Bookings      BookingRepository
	Conversations ConversationRepository
	Users         UserRepository
	Reviews       ReviewRepository
}

func New(s store.Store) *Repositories {
	return &Repositories{
		Bookings:      &storeBookingRepo{store: s},
		Conversations: &storeConversationRepo{store: s},
		Users:         &storeUserRepo{store: s},
		Reviews:       &storeReviewRepo{store: s},
	}
}
