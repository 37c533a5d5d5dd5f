package conversations

import (
	"slices"
	"time"

	"github.com/koscakluka/ema-sales/core/scheduling"
)

// Phase is the stage a call is at in the sales conversation.
type Phase string

const (
	PhaseGreeting                 Phase = "GREETING"
	PhaseQualifying               Phase = "QUALIFYING"
	PhaseProposingSlots           Phase = "PROPOSING_SLOTS"
	PhaseAwaitingSlotConfirmation Phase = "AWAITING_SLOT_CONFIRMATION"
	PhaseAttemptingBooking        Phase = "ATTEMPTING_BOOKING"
	PhaseEnding                   Phase = "ENDING"
	PhaseError                    Phase = "ERROR"
)

// IsTerminal reports whether the call has nothing left to say after this
// phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseEnding || p == PhaseError
}

type AnnotationType string

// AnnotationAvailableSlots records the exact slot list proposed to the lead.
const AnnotationAvailableSlots AnnotationType = "available_slots"

// Annotation is a system note stored in the history next to the turns.
type Annotation struct {
	Type  AnnotationType    `json:"type"`
	Slots []scheduling.Slot `json:"slots,omitempty"`
}

// Entry is a single history item. Either the utterances are set (a turn) or
// Annotation is non-nil.
type Entry struct {
	ID            string      `json:"id"`
	UserUtterance string      `json:"user,omitempty"`
	AIUtterance   string      `json:"ai,omitempty"`
	Annotation    *Annotation `json:"annotation,omitempty"`
}

func (e Entry) IsAnnotation() bool { return e.Annotation != nil }

// CallState is everything remembered about a single call.
type CallState struct {
	CallID     string    `json:"call_id"`
	LeadID     string    `json:"lead_id,omitempty"`
	History    []Entry   `json:"history"`
	Phase      Phase     `json:"phase"`
	RetryCount int       `json:"retry_count"`
	StartedAt  time.Time `json:"started_at"`
}

// clone returns a copy of s that shares no slices or pointers with it.
func (s CallState) clone() CallState {
	history := make([]Entry, len(s.History))
	for i, entry := range s.History {
		if entry.Annotation != nil {
			annotation := *entry.Annotation
			annotation.Slots = slices.Clone(annotation.Slots)
			entry.Annotation = &annotation
		}
		history[i] = entry
	}
	s.History = history
	return s
}

// LatestSlots returns the slots of the most recent available_slots
// annotation in history.
func LatestSlots(history []Entry) ([]scheduling.Slot, bool) {
	for _, entry := range slices.Backward(history) {
		if entry.Annotation != nil && entry.Annotation.Type == AnnotationAvailableSlots {
			return entry.Annotation.Slots, true
		}
	}
	return nil, false
}
