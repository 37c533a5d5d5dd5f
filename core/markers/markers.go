// Package markers extracts the control tokens a generated reply may carry.
//
// A reply can ask for meeting slots to be proposed, confirm one of the
// proposed slots by index, or ask for the call to be ended. The tokens are
// never spoken.
package markers

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	ProposeSlots = "[PROPOSE_MEETING_SLOTS]"
	Hangup       = "GOODBYE_HANGUP"

	confirmPrefix = "[MEETING_CONFIRMED_SLOT_INDEX:"
)

var (
	confirmPattern = regexp.MustCompile(`\[MEETING_CONFIRMED_SLOT_INDEX:([^\]]*)\]`)

	// An unterminated confirm marker runs to the end of its line.
	danglingConfirm = regexp.MustCompile(`\[MEETING_CONFIRMED_SLOT_INDEX:[^\]\n]*`)
)

type Kind int

const (
	KindNone Kind = iota
	KindPropose
	KindConfirm
)

func (k Kind) String() string {
	switch k {
	case KindPropose:
		return "propose"
	case KindConfirm:
		return "confirm"
	default:
		return "none"
	}
}

// Result is what a generated reply asks for.
type Result struct {
	Kind Kind

	// Index is the confirmed slot index, valid only if IndexOK is set. A
	// confirm marker whose index does not parse has Kind == KindConfirm and
	// IndexOK == false.
	Index   int
	IndexOK bool
	// Matched is false if the reply mentions the confirm marker but the
	// token could not be extracted at all.
	Matched bool

	Hangup bool
}

// Parse extracts the control intent from text. When both the propose and the
// confirm markers are present, propose wins.
func Parse(text string) Result {
	result := Result{Hangup: strings.Contains(text, Hangup)}

	switch {
	case strings.Contains(text, ProposeSlots):
		result.Kind = KindPropose
		result.Matched = true

	case strings.Contains(text, confirmPrefix):
		result.Kind = KindConfirm
		match := confirmPattern.FindStringSubmatch(text)
		if match == nil {
			return result
		}
		result.Matched = true
		index, err := strconv.Atoi(strings.TrimSpace(match[1]))
		if err != nil {
			return result
		}
		result.Index = index
		result.IndexOK = true
	}

	return result
}

var whitespace = regexp.MustCompile(`[ \t]{2,}`)

// Strip removes every control token from text, leaving what should be
// spoken.
func Strip(text string) string {
	text = strings.ReplaceAll(text, ProposeSlots, "")
	text = confirmPattern.ReplaceAllString(text, "")
	text = danglingConfirm.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, Hangup, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
