package markers

import "testing"

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want Result
	}{
		{
			name: "plain text",
			text: "Tell me more about your team.",
			want: Result{Kind: KindNone},
		},
		{
			name: "propose",
			text: "Let me check the calendar. [PROPOSE_MEETING_SLOTS]",
			want: Result{Kind: KindPropose, Matched: true},
		},
		{
			name: "confirm with hangup",
			text: "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 1] GOODBYE_HANGUP",
			want: Result{Kind: KindConfirm, Index: 1, IndexOK: true, Matched: true, Hangup: true},
		},
		{
			name: "confirm without space",
			text: "[MEETING_CONFIRMED_SLOT_INDEX:0]",
			want: Result{Kind: KindConfirm, Index: 0, IndexOK: true, Matched: true},
		},
		{
			name: "confirm with bad index",
			text: "[MEETING_CONFIRMED_SLOT_INDEX: second]",
			want: Result{Kind: KindConfirm, Matched: true},
		},
		{
			name: "confirm unterminated",
			text: "Booked [MEETING_CONFIRMED_SLOT_INDEX: 2",
			want: Result{Kind: KindConfirm},
		},
		{
			name: "propose wins over confirm",
			text: "[MEETING_CONFIRMED_SLOT_INDEX: 0] [PROPOSE_MEETING_SLOTS]",
			want: Result{Kind: KindPropose, Matched: true},
		},
		{
			name: "hangup only",
			text: "Thanks, bye. GOODBYE_HANGUP",
			want: Result{Kind: KindNone, Hangup: true},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Parse(tc.text); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	testCases := []struct {
		text string
		want string
	}{
		{text: "Let me check. [PROPOSE_MEETING_SLOTS]", want: "Let me check."},
		{text: "Great, see you then. [MEETING_CONFIRMED_SLOT_INDEX: 2] GOODBYE_HANGUP", want: "Great, see you then."},
		{text: "Thanks for your time GOODBYE_HANGUP", want: "Thanks for your time"},
		{text: "GOODBYE_HANGUP", want: ""},
		{text: "No markers here.", want: "No markers here."},
		{text: "Here are some times. [PROPOSE_MEETING_SLOTS] [MEETING_CONFIRMED_SLOT_INDEX: 2", want: "Here are some times."},
		{text: "Booked. [MEETING_CONFIRMED_SLOT_INDEX: 1", want: "Booked."},
	}

	for _, tc := range testCases {
		if got := Strip(tc.text); got != tc.want {
			t.Fatalf("Strip(%q): expected %q, got %q", tc.text, tc.want, got)
		}
	}
}
