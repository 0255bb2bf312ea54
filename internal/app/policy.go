package app

import (
	"github.com/dkeye/VoiceMatch/internal/core"
	"github.com/dkeye/VoiceMatch/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what to do with a participant whose send queue is full.
type Policy interface {
	OnBackPressure(id domain.ParticipantID, ev core.Event) BackpressureAction
}

// DropPolicy loses the event and keeps the participant. Delivery is fire-and-forget anyway.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.ParticipantID, core.Event) BackpressureAction {
	return DropFrame
}

// KickPolicy disconnects a participant that cannot keep up, which tears its call down.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(domain.ParticipantID, core.Event) BackpressureAction {
	return KickMember
}

func PolicyByName(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}
