package conversation

import "servicehub/models"

// ReconcileParticipants returns the participant list implied by the
// conversation's own signals: the existing list in its original order, then
// unread-counter keys, then message senders. It only ever adds; an empty
// added means nothing was missing and no write is needed.
func ReconcileParticipants(c *models.Conversation, msgs []models.Message) (participants []string, added []string) {
	participants = append([]string(nil), c.Participants...)
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		seen[p] = true
	}
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		participants = append(participants, id)
		added = append(added, id)
	}

	for _, id := range sortedKeys(c.UnreadCount) {
		add(id)
	}
	for _, m := range msgs {
		add(m.SenderID)
	}
	return participants, added
}

// StaleDeletedFlags returns the users whose deleted flag is set even though
// they still have unread messages waiting in the thread.
func StaleDeletedFlags(c *models.Conversation) []string {
	var stale []string
	for _, id := range sortedKeys(c.Deleted) {
		if c.Deleted[id] && c.UnreadCount[id] > 0 {
			stale = append(stale, id)
		}
	}
	return stale
}
