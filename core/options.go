package orchestration

import (
	"time"

	"github.com/koscakluka/ema-sales/core/calendar"
	"github.com/koscakluka/ema-sales/core/conversations"
	"github.com/koscakluka/ema-sales/core/leads"
	"github.com/koscakluka/ema-sales/core/llms"
	"github.com/koscakluka/ema-sales/core/metrics"
)

const (
	// DefaultMaxTurns is the history length at which a call is wrapped up no
	// matter where the conversation is.
	DefaultMaxTurns = 12
	// DefaultMaxRetries is how many silent turns in a row are re-prompted
	// before the call is ended.
	DefaultMaxRetries = 3
)

type OrchestratorOption func(*Orchestrator)

func WithGenerator(generator llms.Generator) OrchestratorOption {
	return func(o *Orchestrator) {
		o.generator = generator
	}
}

func WithCalendar(cal calendar.Calendar) OrchestratorOption {
	return func(o *Orchestrator) {
		o.calendar = cal
	}
}

func WithDirectory(directory leads.Directory) OrchestratorOption {
	return func(o *Orchestrator) {
		o.directory = directory
	}
}

// WithStore shares a conversation store, a private one is created otherwise.
func WithStore(store *conversations.Store) OrchestratorOption {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}

// WithEmailResolver replaces how the invite address of a lead is found.
// Defaults to [leads.NotesEmailResolver].
func WithEmailResolver(resolver leads.EmailResolver) OrchestratorOption {
	return func(o *Orchestrator) {
		if resolver != nil {
			o.emailResolver = resolver
		}
	}
}

func WithMaxTurns(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTurns = n
		}
	}
}

func WithMaxRetries(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithClock sets the time source used to open the availability window.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
