package twilio

import (
	"github.com/koscakluka/ema-sales/core/telephony"
	"github.com/twilio/twilio-go/twiml"
)

const gatherTimeoutSeconds = "5"

// render turns a directive into TwiML. speech is the already resolved main
// line, a <Play> of synthesized audio or a <Say>.
func render(directive telephony.Directive, speech twiml.Element, actionURL string) (string, error) {
	var verbs []twiml.Element
	if speech != nil {
		verbs = append(verbs, speech)
	}

	if directive.Hangup {
		verbs = append(verbs, twiml.VoiceHangup{})
		return twiml.Voice(verbs)
	}

	// Silence is posted to the action as well, with an empty SpeechResult, so
	// the re-prompt and retry cap apply. NoInput only covers a failed post.
	gather := twiml.VoiceGather{
		Input:               "speech",
		Action:              actionURL,
		ActionOnEmptyResult: "true",
		Method:              "POST",
		SpeechTimeout:       "auto",
		Timeout:             gatherTimeoutSeconds,
	}
	if directive.Prompt != "" {
		gather.InnerElements = []twiml.Element{twiml.VoiceSay{Message: directive.Prompt}}
	}
	verbs = append(verbs, gather)
	if directive.NoInput != "" {
		verbs = append(verbs, twiml.VoiceSay{Message: directive.NoInput})
	}
	verbs = append(verbs, twiml.VoiceHangup{})

	return twiml.Voice(verbs)
}
