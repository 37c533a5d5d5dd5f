package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/llms"
	"github.com/koscakluka/ema-sales/core/markers"
	"github.com/koscakluka/ema-sales/core/metrics"
	"github.com/koscakluka/ema-sales/core/scheduling"
	"github.com/koscakluka/ema-sales/core/telephony"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const (
	testCallID     = "CA123"
	testLeadID     = "lead-1"
	testCalendarID = "sales@acme.test"
)

type scriptedGenerator struct {
	replies []string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

type brokenCalendar struct{ err error }

func (c brokenCalendar) Busy(context.Context, string, time.Time, time.Time) ([]scheduling.BusyInterval, error) {
	return nil, c.err
}

func (c brokenCalendar) CreateEvent(context.Context, calendar.EventRequest) (*calendar.Event, error) {
	return nil, c.err
}

// rejectingCalendar reports free time but fails every booking.
type rejectingCalendar struct {
	*calendar.Memory
}

func (rejectingCalendar) CreateEvent(context.Context, calendar.EventRequest) (*calendar.Event, error) {
	return nil, errors.New("invite rejected")
}

func testProfile() leads.Profile {
	return leads.Profile{
		CompanyName:        "Acme",
		ProductName:        "AutoCaller X",
		ProductDescription: "an assistant that books qualified meetings",
		KeySellingPoints:   []string{"saves time", "improves qualification"},
		ConversationGoal:   "book a discovery call",
		AgentName:          "Alex",
		Scheduling: leads.SchedulingParameters{
			CalendarID:               testCalendarID,
			MeetingDurationMinutes:   30,
			Timezone:                 "America/New_York",
			BusinessHoursStart:       "09:00",
			BusinessHoursEnd:         "17:00",
			BusinessDays:             []int{0, 1, 2, 3, 4},
			SlotsToPropose:           3,
			DaysToCheckAvailability:  7,
			SalesRepresentativeEmail: "rep@acme.test",
		},
	}
}

func testLead() leads.Lead {
	return leads.Lead{
		ID:          testLeadID,
		Name:        "Jane Doe",
		PhoneNumber: "+15550100",
		CompanyName: "Globex",
		Role:        "CTO",
		LinkedInURL: "https://linkedin.com/in/janedoe",
		CustomNotes: "Met at the expo, reach her at jane@globex.test",
	}
}

// testNow is a Monday evening in New York, after business hours.
func testNow(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	return time.Date(2024, time.May, 20, 18, 0, 0, 0, loc)
}

type fixture struct {
	orchestrator *Orchestrator
	generator    *scriptedGenerator
	calendar     *calendar.Memory
	metrics      *metrics.Metrics
}

func newFixture(t *testing.T, lead leads.Lead, opts ...OrchestratorOption) *fixture {
	t.Helper()

	profile := testProfile()
	f := &fixture{
		generator: &scriptedGenerator{},
		calendar:  calendar.NewMemory(),
		metrics:   metrics.NewMetrics("test"),
	}
	now := testNow(t)
	f.orchestrator = NewOrchestrator(append([]OrchestratorOption{
		WithGenerator(f.generator),
		WithCalendar(f.calendar),
		WithDirectory(leads.NewStatic([]leads.Lead{lead}, &profile)),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return now }),
	}, opts...)...)
	return f
}

func (f *fixture) turn(utterance string, reply ...string) (directiveSay string, hangup bool) {
	f.generator.replies = append(f.generator.replies, reply...)
	directive := f.orchestrator.HandleTurn(context.Background(), TurnRequest{
		CallID:    testCallID,
		LeadID:    testLeadID,
		Utterance: utterance,
	})
	return directive.Say, directive.Hangup
}

func (f *fixture) state() conversations.CallState {
	return f.orchestrator.Store().Get(testCallID)
}

func TestStartGreetsLead(t *testing.T) {
	f := newFixture(t, testLead())

	directive := f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: testLeadID})

	want := "Hello Jane Doe. My name is Alex, and I'm calling from Acme. " +
		"We're introducing AutoCaller X, an assistant that books qualified meetings. " +
		"Is this a good time to talk briefly?"
	if directive.Say != want {
		t.Fatalf("unexpected greeting:\n got %q\nwant %q", directive.Say, want)
	}
	if directive.Hangup || directive.NoInput != lineGreetingSilence {
		t.Fatalf("expected to listen after greeting, got %+v", directive)
	}
	if state := f.state(); state.Phase != conversations.PhaseGreeting || state.LeadID != testLeadID {
		t.Fatalf("unexpected state after start: %+v", state)
	}
}

func TestStartDiscardsPreviousState(t *testing.T) {
	f := newFixture(t, testLead())
	f.orchestrator.Store().AppendTurn(testCallID, "old", "old")
	f.orchestrator.Store().SetPhase(testCallID, conversations.PhaseAwaitingSlotConfirmation)

	f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: testLeadID})

	if state := f.state(); len(state.History) != 0 || state.Phase != conversations.PhaseGreeting {
		t.Fatalf("expected fresh state, got %+v", state)
	}
}

func TestStartWithUnknownLeadHangsUp(t *testing.T) {
	f := newFixture(t, testLead())

	directive := f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: "nobody"})

	if !directive.Hangup || directive.Say != lineDataMissing {
		t.Fatalf("expected apology and hangup, got %+v", directive)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected the failed call to be cleared")
	}
}

func TestProposeSlotsAfterInterest(t *testing.T) {
	f := newFixture(t, testLead())
	f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: testLeadID})

	say, hangup := f.turn("yes, sounds good", "Great, let me check! [PROPOSE_MEETING_SLOTS]")

	if hangup {
		t.Fatalf("expected the call to continue")
	}
	if !strings.HasPrefix(say, "Great, let me check! ") {
		t.Fatalf("expected the generated acknowledgement to be kept, got %q", say)
	}
	if !strings.Contains(say, "option 0 is Tuesday, May 21 at 09:00 AM EDT") ||
		!strings.Contains(say, "option 2 is Tuesday, May 21 at 10:00 AM EDT") {
		t.Fatalf("expected slot options to be dictated, got %q", say)
	}
	if strings.Contains(say, markers.ProposeSlots) {
		t.Fatalf("marker leaked into speech: %q", say)
	}

	state := f.state()
	if state.Phase != conversations.PhaseAwaitingSlotConfirmation {
		t.Fatalf("expected phase %s, got %s", conversations.PhaseAwaitingSlotConfirmation, state.Phase)
	}
	if len(state.History) != 2 {
		t.Fatalf("expected turn and annotation, got %d entries", len(state.History))
	}
	if turn := state.History[0]; turn.UserUtterance != "yes, sounds good" || turn.AIUtterance != "Great, let me check! [PROPOSE_MEETING_SLOTS]" {
		t.Fatalf("expected raw reply in history, got %+v", turn)
	}
	annotation := state.History[1].Annotation
	if annotation == nil || annotation.Type != conversations.AnnotationAvailableSlots {
		t.Fatalf("expected available_slots annotation, got %+v", state.History[1])
	}
	wantFirst := time.Date(2024, time.May, 21, 9, 0, 0, 0, testNow(t).Location())
	if len(annotation.Slots) != 3 || !annotation.Slots[0].Start.Equal(wantFirst) {
		t.Fatalf("expected 3 slots starting at %v, got %+v", wantFirst, annotation.Slots)
	}

	if prompt := f.generator.prompts[0]; !strings.Contains(prompt, "Current conversation state: QUALIFYING.") ||
		!strings.Contains(prompt, "The client just said: 'yes, sounds good'.") {
		t.Fatalf("unexpected prompt:\n%s", prompt)
	}
	if got := testutil.ToFloat64(f.metrics.SlotSearchesTotal.WithLabelValues("found")); got != 1 {
		t.Fatalf("expected one successful slot search, got %v", got)
	}
}

func TestConfirmBooksMeeting(t *testing.T) {
	f := newFixture(t, testLead())
	f.turn("yes, sounds good", "Great, let me check! [PROPOSE_MEETING_SLOTS]")

	say, hangup := f.turn("the second one", "Excellent, 9:30 it is. [MEETING_CONFIRMED_SLOT_INDEX: 1]")

	if !hangup {
		t.Fatalf("expected hangup after booking")
	}
	if want := "Excellent, 9:30 it is. " + lineBooked; say != want {
		t.Fatalf("unexpected line:\n got %q\nwant %q", say, want)
	}

	events := f.calendar.Events()
	if len(events) != 1 {
		t.Fatalf("expected one booked event, got %d", len(events))
	}
	event := events[0]
	wantStart := time.Date(2024, time.May, 21, 9, 30, 0, 0, testNow(t).Location())
	if !event.Start.Equal(wantStart) || !event.End.Equal(wantStart.Add(30*time.Minute)) {
		t.Fatalf("unexpected event time %v - %v", event.Start, event.End)
	}
	if event.Summary != "Sales Call: Acme / Jane Doe" || event.CalendarID != testCalendarID || event.Timezone != "America/New_York" {
		t.Fatalf("unexpected event %+v", event)
	}
	if fmt.Sprint(event.Attendees) != "[rep@acme.test jane@globex.test]" {
		t.Fatalf("unexpected attendees %v", event.Attendees)
	}

	if !strings.Contains(f.generator.prompts[1], `System: I have found these available slots, please propose them with their index: [0: "Tuesday, May 21 at 09:00 AM EDT"`) {
		t.Fatalf("expected slots in the follow-up prompt:\n%s", f.generator.prompts[1])
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected call state to be cleared")
	}
	if got := testutil.ToFloat64(f.metrics.BookingsTotal.WithLabelValues("scheduled")); got != 1 {
		t.Fatalf("expected one booking, got %v", got)
	}
}

func TestConfirmFallbacks(t *testing.T) {
	noEmailLead := testLead()
	noEmailLead.CustomNotes = "no contact details"

	tests := []struct {
		name     string
		lead     leads.Lead
		calendar func(*calendar.Memory) calendar.Calendar
		propose  bool
		reply    string
		want     string
	}{
		{
			name:  "no proposal in history",
			lead:  testLead(),
			reply: "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 0]",
			want:  lineConfirmMixUp,
		},
		{
			name:    "index out of range",
			lead:    testLead(),
			propose: true,
			reply:   "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 7]",
			want:    lineConfirmMixUp,
		},
		{
			name:    "index not a number",
			lead:    testLead(),
			propose: true,
			reply:   "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: two]",
			want:    lineConfirmBadIndex,
		},
		{
			name:    "marker not closed",
			lead:    testLead(),
			propose: true,
			reply:   "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 1",
			want:    lineConfirmUnmatched,
		},
		{
			name:    "no lead email",
			lead:    noEmailLead,
			propose: true,
			reply:   "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 0]",
			want:    "Perfect. " + lineNoEmail,
		},
		{
			name: "booking fails",
			lead: testLead(),
			calendar: func(m *calendar.Memory) calendar.Calendar {
				return rejectingCalendar{Memory: m}
			},
			propose: true,
			reply:   "Perfect. [MEETING_CONFIRMED_SLOT_INDEX: 0]",
			want:    "Perfect. " + lineBookingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			memory := calendar.NewMemory()
			var cal calendar.Calendar = memory
			if tt.calendar != nil {
				cal = tt.calendar(memory)
			}
			f := newFixture(t, tt.lead, WithCalendar(cal))
			f.calendar = memory

			if tt.propose {
				f.turn("sure", "[PROPOSE_MEETING_SLOTS]")
			}
			say, hangup := f.turn("that one", tt.reply)

			if say != tt.want {
				t.Fatalf("unexpected line:\n got %q\nwant %q", say, tt.want)
			}
			if !hangup {
				t.Fatalf("expected every confirmation to end the call")
			}
			if len(memory.Events()) != 0 {
				t.Fatalf("expected no booked events")
			}
			if f.orchestrator.Store().Len() != 0 {
				t.Fatalf("expected call state to be cleared")
			}
		})
	}
}

func TestProposeDeflectsWhenNoSlots(t *testing.T) {
	tests := []struct {
		name     string
		calendar func(*calendar.Memory, time.Time) calendar.Calendar
		want     string
		outcome  string
	}{
		{
			name: "calendar full",
			calendar: func(m *calendar.Memory, now time.Time) calendar.Calendar {
				m.AddBusy(testCalendarID, now.Add(-time.Hour), now.Add(10*24*time.Hour))
				return m
			},
			want:    lineCalendarFull,
			outcome: "empty",
		},
		{
			name: "calendar unavailable",
			calendar: func(*calendar.Memory, time.Time) calendar.Calendar {
				return brokenCalendar{err: errors.New("quota exceeded")}
			},
			want:    lineCalendarFailed,
			outcome: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testLead())
			f.orchestrator.calendar = tt.calendar(f.calendar, testNow(t))

			say, hangup := f.turn("let's book", "Great, let me check! [PROPOSE_MEETING_SLOTS]")

			if say != tt.want || !hangup {
				t.Fatalf("expected %q and hangup, got %q (hangup %v)", tt.want, say, hangup)
			}
			if f.orchestrator.Store().Len() != 0 {
				t.Fatalf("expected call state to be cleared")
			}
			if got := testutil.ToFloat64(f.metrics.SlotSearchesTotal.WithLabelValues(tt.outcome)); got != 1 {
				t.Fatalf("expected slot search outcome %q, got %v", tt.outcome, got)
			}
		})
	}
}

func TestMaxTurnsEndsCallRegardlessOfPhase(t *testing.T) {
	f := newFixture(t, testLead())
	store := f.orchestrator.Store()
	for i := range DefaultMaxTurns {
		store.AppendTurn(testCallID, fmt.Sprintf("user %d", i), "ai")
	}
	store.SetPhase(testCallID, conversations.PhaseAwaitingSlotConfirmation)

	say, hangup := f.turn("one more thing", "should not be generated")

	if say != lineMaxTurns || !hangup {
		t.Fatalf("expected closing line and hangup, got %q (hangup %v)", say, hangup)
	}
	if len(f.generator.prompts) != 0 {
		t.Fatalf("expected no generation at the turn cap")
	}
	if store.Len() != 0 {
		t.Fatalf("expected call state to be cleared")
	}
}

func TestMaxTurnsOption(t *testing.T) {
	f := newFixture(t, testLead(), WithMaxTurns(1))

	if _, hangup := f.turn("hello", "Hi there!"); hangup {
		t.Fatalf("expected first turn to continue")
	}
	if say, hangup := f.turn("hello again"); say != lineMaxTurns || !hangup {
		t.Fatalf("expected the second turn to hit the cap, got %q", say)
	}
}

func TestSilenceRepromptsWithoutGenerating(t *testing.T) {
	f := newFixture(t, testLead())
	f.turn("hello", "Hi Jane, is now a good time?")

	directive := f.orchestrator.HandleTurn(context.Background(), TurnRequest{CallID: testCallID, LeadID: testLeadID, Utterance: "   "})

	want := telephony.Directive{Say: lineReprompt, Prompt: lineRepromptAsk, NoInput: lineStillNoInput}
	if directive != want {
		t.Fatalf("unexpected re-prompt %+v", directive)
	}
	if len(f.generator.prompts) != 1 {
		t.Fatalf("expected no generation for silence, got %d prompts", len(f.generator.prompts))
	}
	state := f.state()
	if len(state.History) != 1 || state.RetryCount != 1 || state.Phase != conversations.PhaseQualifying {
		t.Fatalf("unexpected state after silence: %+v", state)
	}

	f.turn("sorry, yes", "No problem!")
	if state := f.state(); state.RetryCount != 0 {
		t.Fatalf("expected speech to reset the retry counter, got %d", state.RetryCount)
	}
}

func TestRepeatedSilenceEndsCall(t *testing.T) {
	f := newFixture(t, testLead())
	f.turn("hello", "Hi Jane, is now a good time?")

	for i := range DefaultMaxRetries {
		if _, hangup := f.turn(""); hangup {
			t.Fatalf("expected re-prompt %d to keep the call open", i+1)
		}
	}

	say, hangup := f.turn("")
	if say != lineStillNoInput || !hangup {
		t.Fatalf("expected the call to end after %d silent turns, got %q", DefaultMaxRetries+1, say)
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected call state to be cleared")
	}
}

func TestFirstTurnSilenceIsGenerated(t *testing.T) {
	f := newFixture(t, testLead())
	f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: testLeadID})

	say, hangup := f.turn("", "Are you still there, Jane?")

	if say != "Are you still there, Jane?" || hangup {
		t.Fatalf("expected a generated reply on the first turn, got %q", say)
	}
}

func TestGeneratorFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "transport", err: errors.New("connection reset"), want: lineGenerationFailed},
		{name: "blocked", err: fmt.Errorf("%w: safety", llms.ErrContentBlocked), want: lineContentBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, testLead())
			f.generator.err = tt.err

			say, hangup := f.turn("tell me more")

			if say != tt.want || !hangup {
				t.Fatalf("expected %q and hangup, got %q", tt.want, say)
			}
			if f.orchestrator.Store().Len() != 0 {
				t.Fatalf("expected call state to be cleared")
			}
			if got := testutil.ToFloat64(f.metrics.TurnsTotal.WithLabelValues(string(conversations.PhaseError))); got != 1 {
				t.Fatalf("expected the turn to end in ERROR, got %v", got)
			}
		})
	}
}

func TestHangupMarker(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{reply: "No problem, have a great day. GOODBYE_HANGUP", want: "No problem, have a great day."},
		{reply: "GOODBYE_HANGUP", want: lineGoodbye},
	}

	for _, tt := range tests {
		f := newFixture(t, testLead())

		say, hangup := f.turn("not interested", tt.reply)

		if say != tt.want || !hangup {
			t.Fatalf("expected %q and hangup, got %q (hangup %v)", tt.want, say, hangup)
		}
		if f.orchestrator.Store().Len() != 0 {
			t.Fatalf("expected call state to be cleared")
		}
	}
}

func TestEmptyReplyAsksAgain(t *testing.T) {
	f := newFixture(t, testLead())
	f.generator.replies = []string{"  "}

	directive := f.orchestrator.HandleTurn(context.Background(), TurnRequest{CallID: testCallID, LeadID: testLeadID, Utterance: "what?"})

	if directive.Say != lineEmptyReply || directive.Hangup || directive.NoInput != lineNoInput {
		t.Fatalf("unexpected directive %+v", directive)
	}
}

func TestMissingLeadIsFatal(t *testing.T) {
	f := newFixture(t, testLead())

	directive := f.orchestrator.HandleTurn(context.Background(), TurnRequest{CallID: "CA999", LeadID: "unknown", Utterance: "hello"})

	if directive.Say != lineDataMissing || !directive.Hangup {
		t.Fatalf("unexpected directive %+v", directive)
	}
	if len(f.generator.prompts) != 0 {
		t.Fatalf("expected no generation without call data")
	}
	if f.orchestrator.Store().Len() != 0 {
		t.Fatalf("expected call state to be cleared")
	}
}

func TestConcurrentCallsDoNotInterfere(t *testing.T) {
	profile := testProfile()
	second := testLead()
	second.ID = "lead-2"
	second.Name = "John Roe"

	generator := llms.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "You are talking to John Roe") {
			return "Hello John.", nil
		}
		return "Hello Jane.", nil
	})
	o := NewOrchestrator(
		WithGenerator(generator),
		WithCalendar(calendar.NewMemory()),
		WithDirectory(leads.NewStatic([]leads.Lead{testLead(), second}, &profile)),
	)

	done := make(chan struct{})
	for _, req := range []TurnRequest{
		{CallID: "CA-jane", LeadID: testLeadID, Utterance: "hi"},
		{CallID: "CA-john", LeadID: "lead-2", Utterance: "hi"},
	} {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 5 {
				o.HandleTurn(context.Background(), req)
			}
		}()
	}
	<-done
	<-done

	for callID, want := range map[string]string{"CA-jane": "Hello Jane.", "CA-john": "Hello John."} {
		state := o.Store().Get(callID)
		if len(state.History) != 5 {
			t.Fatalf("expected 5 turns for %s, got %d", callID, len(state.History))
		}
		for _, entry := range state.History {
			if entry.AIUtterance != want {
				t.Fatalf("call %s observed another call's reply %q", callID, entry.AIUtterance)
			}
		}
	}
}

// gatedDirectory blocks the first lead lookup until released.
type gatedDirectory struct {
	leads.Directory
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (d *gatedDirectory) Lead(ctx context.Context, id string) (leads.Lead, error) {
	if d.calls.Add(1) == 1 {
		close(d.entered)
		<-d.release
	}
	return d.Directory.Lead(ctx, id)
}

func TestStartSerializesWithTurnOfSameCall(t *testing.T) {
	profile := testProfile()
	directory := &gatedDirectory{
		Directory: leads.NewStatic([]leads.Lead{testLead()}, &profile),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	f := newFixture(t, testLead(), WithDirectory(directory))
	f.generator.replies = []string{"Glad to hear it."}

	started := make(chan struct{})
	go func() {
		defer close(started)
		f.orchestrator.Start(context.Background(), StartRequest{CallID: testCallID, LeadID: testLeadID})
	}()
	<-directory.entered

	turned := make(chan struct{})
	go func() {
		defer close(turned)
		f.orchestrator.HandleTurn(context.Background(), TurnRequest{CallID: testCallID, LeadID: testLeadID, Utterance: "hello"})
	}()

	select {
	case <-turned:
		t.Fatalf("turn for %s completed while the call was still starting", testCallID)
	case <-time.After(20 * time.Millisecond):
	}

	close(directory.release)
	<-started
	<-turned

	state := f.state()
	if len(state.History) != 1 || state.History[0].AIUtterance != "Glad to hear it." {
		t.Fatalf("expected the turn to run after start, got %+v", state.History)
	}
	if state.Phase != conversations.PhaseQualifying {
		t.Fatalf("expected phase %s, got %s", conversations.PhaseQualifying, state.Phase)
	}
}
