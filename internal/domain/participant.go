// Package domain contains entities without transport or lifecycle logic.
package domain

import "github.com/google/uuid"

// ParticipantID identifies one live signaling connection. A reconnect gets a new id.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.NewString())
}
