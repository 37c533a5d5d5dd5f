// Package telephony describes what the phone line should do after a turn.
package telephony

// Directive is the telephony layer's next instruction for a call.
type Directive struct {
	// Say is the main line spoken to the lead. It is synthesized when a
	// voice is configured.
	Say string
	// Prompt is spoken while already listening, e.g. a re-ask after silence.
	Prompt string
	// NoInput is spoken when listening ends without any speech, the call is
	// hung up afterwards.
	NoInput string
	// Hangup ends the call after Say, nothing is listened for.
	Hangup bool
}

// Listen speaks line and waits for the lead to answer.
func Listen(line, noInput string) Directive {
	return Directive{Say: line, NoInput: noInput}
}

// HangUp speaks line and ends the call.
func HangUp(line string) Directive {
	return Directive{Say: line, Hangup: true}
}
