package orchestration

// Fixed lines spoken when the reply is not the generator's own.
const (
	lineMaxTurns    = "Thank you for your time today. We've covered quite a bit. A team member will follow up if necessary. Goodbye."
	lineDataMissing = "Server error: Essential configuration data missing. Goodbye."

	lineReprompt        = "Sorry, I didn't quite catch that."
	lineRepromptAsk     = "Could you please say that again?"
	lineStillNoInput    = "Still no input. Goodbye."
	lineNoInput         = "Sorry, I didn't catch that. Could you say it again?"
	lineGreetingSilence = "We didn't receive any input. Goodbye."

	lineGenerationFailed = "I'm having trouble processing that. Please try again later. Goodbye."
	lineContentBlocked   = "I'm sorry, I can't discuss that. Thank you for your time. Goodbye."
	lineEmptyReply       = "I'm not sure how to respond to that. Could you say it again?"

	lineCheckingTimes  = "Great! Let me check some available times for us."
	lineCalendarFull   = "It looks like our calendar is quite full at the moment. I'll make a note for our team to reach out to you personally to find a suitable time. Thanks!"
	lineCalendarFailed = "I had an issue checking the calendar. Our team will follow up with you. Thanks."

	lineConfirmUnmatched = "I couldn't quite confirm that selection. A team member will reach out."
	lineConfirmBadIndex  = "There was an issue confirming that time. Let's try again or a team member can assist."
	lineConfirmMixUp     = "I had a slight mix-up with that confirmation. A team member will reach out to finalize."
	lineNoEmail          = "I have that time noted, but I'll need a team member to finalize the calendar invite with you as I couldn't confirm your email."
	lineBookingFailed    = "I noted your choice, but encountered an issue sending the calendar invite. Our team will follow up to confirm everything with you."
	lineBooked           = "Great! I've scheduled that for you. You should receive an invitation shortly."

	lineGoodbye = "Okay. Goodbye."
	lineNotSure = "I'm not sure how to respond."
)
