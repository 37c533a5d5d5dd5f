package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/llms"
	"github.com/koscakluka/ema-sales/core/metrics"
	"github.com/koscakluka/ema-sales/core/scheduling"
)

// Orchestrator runs the sales conversation of every active call, one turn
// per request from the telephony layer.
type Orchestrator struct {
	generator     llms.Generator
	calendar      calendar.Calendar
	directory     leads.Directory
	store         *conversations.Store
	emailResolver leads.EmailResolver
	metrics       *metrics.Metrics

	maxTurns   int
	maxRetries int
	now        func() time.Time
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		store:         conversations.NewStore(),
		emailResolver: leads.NotesEmailResolver,
		maxTurns:      DefaultMaxTurns,
		maxRetries:    DefaultMaxRetries,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Store returns the conversation store the orchestrator keeps calls in.
func (o *Orchestrator) Store() *conversations.Store {
	return o.store
}

// callData is everything a turn needs to know about who is called and on
// whose behalf.
type callData struct {
	lead    leads.Lead
	profile leads.Profile
	hours   scheduling.BusinessHours
}

func (o *Orchestrator) loadCallData(ctx context.Context, leadID string) (callData, error) {
	if o.directory == nil {
		return callData{}, fmt.Errorf("no lead directory configured")
	}
	if leadID == "" {
		return callData{}, fmt.Errorf("%w: no lead id", leads.ErrLeadNotFound)
	}

	lead, err := o.directory.Lead(ctx, leadID)
	if err != nil {
		return callData{}, err
	}
	profile, err := o.directory.Profile(ctx)
	if err != nil {
		return callData{}, err
	}
	if err := profile.Validate(); err != nil {
		return callData{}, err
	}
	hours, err := profile.Scheduling.BusinessHours()
	if err != nil {
		return callData{}, err
	}

	return callData{lead: lead, profile: profile, hours: hours}, nil
}

// endCall forgets the call. Whatever is said next is the last thing the lead
// hears.
func (o *Orchestrator) endCall(ctx context.Context, callID, reason string) {
	o.store.Clear(ctx, callID)
	o.metrics.RecordCallEnded(reason)
	o.metrics.SetActiveCalls(o.store.Len())
}
