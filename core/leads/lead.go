package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var (
	ErrLeadNotFound      = errors.New("lead not found")
	ErrIncompleteProfile = errors.New("company profile incomplete")
)

// Lead is a contact to call.
type Lead struct {
	ID          string `json:"id" jsonschema:"required"`
	Name        string `json:"name" jsonschema:"required"`
	PhoneNumber string `json:"phone_number" jsonschema:"required"`
	CompanyName string `json:"company_name" jsonschema:"required"`
	Role        string `json:"role" jsonschema:"required"`
	LinkedInURL string `json:"linkedin_url" jsonschema:"required"`
	CustomNotes string `json:"custom_notes,omitempty"`
	// Email is optional, the notes are searched for an address when it is
	// missing.
	Email string `json:"email,omitempty"`
}

func (l Lead) missingFields() []string {
	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"id", l.ID},
		{"name", l.Name},
		{"phone_number", l.PhoneNumber},
		{"company_name", l.CompanyName},
		{"role", l.Role},
		{"linkedin_url", l.LinkedInURL},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// ParseLeads decodes a JSON array of leads. Entries that are not objects or
// miss a required field are skipped.
func ParseLeads(ctx context.Context, data []byte) ([]Lead, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid leads format, expected a list of leads: %w", err)
	}

	leads := make([]Lead, 0, len(raw))
	for i, entry := range raw {
		var lead Lead
		if err := json.Unmarshal(entry, &lead); err != nil {
			logger.WarnContext(ctx, "skipping invalid lead entry", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		if missing := lead.missingFields(); len(missing) > 0 {
			logger.WarnContext(ctx, "skipping lead with missing fields",
				slog.Int("index", i), slog.String("lead.id", lead.ID), slog.Any("missing", missing))
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func LoadLeads(ctx context.Context, path string) ([]Lead, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads: %w", err)
	}

	leads, err := ParseLeads(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.InfoContext(ctx, "loaded leads", slog.String("path", path), slog.Int("count", len(leads)))
	return leads, nil
}

// EmailResolver finds the address a meeting invite for the lead is sent to.
type EmailResolver interface {
	ResolveEmail(Lead) (string, bool)
}

type EmailResolverFunc func(Lead) (string, bool)

func (f EmailResolverFunc) ResolveEmail(lead Lead) (string, bool) { return f(lead) }

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// NotesEmailResolver prefers the lead's explicit email and falls back to the
// first address mentioned in the custom notes.
var NotesEmailResolver EmailResolver = EmailResolverFunc(func(lead Lead) (string, bool) {
	if email := strings.TrimSpace(lead.Email); email != "" {
		return email, true
	}
	if email := emailPattern.FindString(lead.CustomNotes); email != "" {
		return email, true
	}
	return "", false
})
