package orchestration

import (
	"fmt"
	"strings"

	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/markers"
)

const (
	defaultProductDescription = "it helps businesses achieve great results by automating initial outreach and scheduling qualified meetings"
	defaultConversationGoal   = "to determine if the lead is a good fit for our product and to schedule a discovery call with a senior sales representative if there is clear interest"
)

// renderHistory writes history as "User:", "AI:" and "System:" lines, one
// per utterance.
func renderHistory(history []conversations.Entry) string {
	var b strings.Builder
	for _, entry := range history {
		if entry.IsAnnotation() {
			if entry.Annotation.Type != conversations.AnnotationAvailableSlots {
				continue
			}
			options := make([]string, 0, len(entry.Annotation.Slots))
			for _, slot := range entry.Annotation.Slots {
				options = append(options, fmt.Sprintf("%d: %q", slot.Index, slot.Label))
			}
			fmt.Fprintf(&b, "System: I have found these available slots, please propose them with their index: [%s]\n", strings.Join(options, ", "))
			continue
		}

		fmt.Fprintf(&b, "User: %s\n", entry.UserUtterance)
		fmt.Fprintf(&b, "AI: %s\n", entry.AIUtterance)
	}
	return b.String()
}

func buildPrompt(history []conversations.Entry, profile leads.Profile, lead leads.Lead, phase conversations.Phase, utterance string) string {
	description := profile.ProductDescription
	if description == "" {
		description = defaultProductDescription
	}
	goal := profile.ConversationGoal
	if goal == "" {
		goal = defaultConversationGoal
	}
	sellingPoints := "saves time, improves qualification"
	if len(profile.KeySellingPoints) > 0 {
		sellingPoints = strings.Join(profile.KeySellingPoints, ", ")
	}

	var b strings.Builder
	b.WriteString(renderHistory(history))
	fmt.Fprintf(&b, "You are %s, an AI sales representative for %s. ", profile.AgentName, profile.CompanyName)
	fmt.Fprintf(&b, "Your product is %s: %s. ", profile.ProductName, description)
	fmt.Fprintf(&b, "Key selling points include: %s. ", sellingPoints)
	fmt.Fprintf(&b, "Your current goal is: %s. ", goal)
	b.WriteString("Maintain a friendly, professional, and helpful tone. Your responses should be concise, typically 1-2 sentences, maximum 3. ")
	fmt.Fprintf(&b, "You are talking to %s from %s. ", lead.Name, lead.CompanyName)
	fmt.Fprintf(&b, "Current conversation state: %s.\n", phase)
	fmt.Fprintf(&b, "The client just said: '%s'.\n\n", utterance)

	b.WriteString("**Your Task (align with current state):**\n")
	fmt.Fprintf(&b, "Your behavior should align with the current conversation state: '%s'.\n", phase)
	b.WriteString(phaseTask(phase))
	b.WriteString("1. Acknowledge any specific questions or points the user made if appropriate.\n")
	b.WriteString("2. If the user asks a direct question, answer concisely from provided info. If unknown, defer to a specialist for a follow-up.\n")
	b.WriteString("3. Listen for objections. Address briefly if a simple counter is obvious from product info. Do not argue. Otherwise, acknowledge.\n")
	b.WriteString("4. Gauge interest. Positive questions are good signs.\n")
	fmt.Fprintf(&b, "5. Steer conversation to your goal. If strong interest in a demo/meeting, or if they ask to book (and state is QUALIFYING), first confirm (e.g., 'Great, I can help with that!'), then end your response with the exact phrase `%s`.\n", markers.ProposeSlots)
	fmt.Fprintf(&b, "6. If the client shows clear/strong disinterest (e.g., 'not interested', 'stop calling', 'remove me from your list'), respond politely and end your response with '%s'.\n", markers.Hangup)
	b.WriteString("7. **Proposing Meeting Slots**: If state is `PROPOSING_SLOTS` (or if history includes 'System: I have found these available slots...'), your primary goal for this turn is to propose these exact slots to the user. Example: 'Great! I found a few times: option 0 is [slot A string], option 1 is [slot B string]. Does one of those options work for you?'. If no slots available from history, inform the user and suggest manual follow-up.\n")
	b.WriteString("8. **Handling Response to Slot Proposal**: If state is `AWAITING_SLOT_CONFIRMATION` and the user responds to proposed slots, try to understand their choice. If they confirm a specific slot by its number/index or by repeating enough details, acknowledge it (e.g., 'Excellent, Tuesday at 2 PM is confirmed.'), and then include `[MEETING_CONFIRMED_SLOT_INDEX: {index_0_based}]` (replace `{index_0_based}` with the chosen numeric index). If they say none work or ask for other times, acknowledge this (e.g., 'Okay, I understand. I'll make a note for our team to find some alternative times for you.'). If ambiguous, ask for clarification.\n")
	b.WriteString("9. Otherwise (if not covered by above, e.g. general chat in QUALIFYING state), continue conversation naturally. Do NOT use special keywords unless criteria are met.\n\n")
	b.WriteString("Generate your response now.")

	return b.String()
}

func phaseTask(phase conversations.Phase) string {
	switch phase {
	case conversations.PhaseGreeting, conversations.PhaseQualifying:
		return "Focus on introduction, rapport, and understanding needs. Transition to PROPOSING_SLOTS if strong interest is shown.\n"
	case conversations.PhaseProposingSlots:
		return "Propose the slots listed by the System line verbatim, with their index.\n"
	case conversations.PhaseAwaitingSlotConfirmation:
		return "Your main goal is to get a clear choice for the proposed slots or handle objections to them.\n"
	default:
		return ""
	}
}

// greeting is the opening line of a call.
func greeting(profile leads.Profile, lead leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s. My name is %s, and I'm calling from %s. ", lead.Name, profile.AgentName, profile.CompanyName)
	if profile.ProductDescription != "" {
		fmt.Fprintf(&b, "We're introducing %s, %s. ", profile.ProductName, strings.TrimSuffix(profile.ProductDescription, "."))
	} else {
		fmt.Fprintf(&b, "We're introducing %s. ", profile.ProductName)
	}
	b.WriteString("Is this a good time to talk briefly?")
	return b.String()
}
