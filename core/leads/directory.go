package leads

import (
	"context"
	"fmt"
	"sync"
)

// Directory provides the lead being called and the company profile the call
// is made for.
type Directory interface {
	Lead(ctx context.Context, id string) (Lead, error)
	Profile(ctx context.Context) (Profile, error)
}

var _ Directory = (*Static)(nil)

// Static is a [Directory] over data loaded up front.
type Static struct {
	mu      sync.RWMutex
	leads   map[string]Lead
	profile *Profile
}

// NewStatic indexes leads by ID. Later duplicates win. A nil profile makes
// every Profile call fail with [ErrIncompleteProfile].
func NewStatic(leads []Lead, profile *Profile) *Static {
	s := &Static{leads: make(map[string]Lead, len(leads))}
	for _, lead := range leads {
		s.leads[lead.ID] = lead
	}
	if profile != nil {
		copied := *profile
		s.profile = &copied
	}
	return s
}

// Load reads the leads and profile files into a [Static] directory.
func Load(ctx context.Context, leadsPath, profilePath string) (*Static, error) {
	leads, err := LoadLeads(ctx, leadsPath)
	if err != nil {
		return nil, err
	}
	profile, err := LoadProfile(ctx, profilePath)
	if err != nil {
		return nil, err
	}
	return NewStatic(leads, &profile), nil
}

func (s *Static) Lead(_ context.Context, id string) (Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return Lead{}, fmt.Errorf("%w: %q", ErrLeadNotFound, id)
	}
	return lead, nil
}

func (s *Static) Profile(_ context.Context) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.profile == nil {
		return Profile{}, fmt.Errorf("%w: no profile loaded", ErrIncompleteProfile)
	}
	return *s.profile, nil
}

// Leads returns every known lead, in no particular order.
func (s *Static) Leads() []Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leads := make([]Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		leads = append(leads, lead)
	}
	return leads
}
