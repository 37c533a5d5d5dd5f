package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/koscakluka/ema-sales/core/scheduling"
	"gopkg.in/yaml.v3"
)

const DefaultAgentName = "Alex"

// Profile describes the company the agent calls on behalf of.
type Profile struct {
	CompanyName        string   `json:"company_name" yaml:"company_name" jsonschema:"required"`
	ProductName        string   `json:"product_name" yaml:"product_name" jsonschema:"required"`
	ProductDescription string   `json:"product_description" yaml:"product_description"`
	KeySellingPoints   []string `json:"key_selling_points" yaml:"key_selling_points"`
	ConversationGoal   string   `json:"conversation_goal" yaml:"conversation_goal"`
	// AgentName is how the agent introduces itself.
	AgentName string `json:"agent_name,omitempty" yaml:"agent_name,omitempty" jsonschema:"default=Alex"`

	Scheduling SchedulingParameters `json:"scheduling_parameters" yaml:"scheduling_parameters" jsonschema:"required"`
}

// SchedulingParameters is the meeting booking policy.
type SchedulingParameters struct {
	CalendarID             string `json:"calendar_id" yaml:"calendar_id" jsonschema:"required"`
	MeetingDurationMinutes int    `json:"meeting_duration_minutes" yaml:"meeting_duration_minutes" jsonschema:"required,minimum=1"`
	// Timezone is an IANA zone name, e.g. America/New_York.
	Timezone string `json:"timezone" yaml:"timezone" jsonschema:"required"`
	// BusinessHoursStart and BusinessHoursEnd are HH:MM wall clock times.
	BusinessHoursStart string `json:"business_hours_start" yaml:"business_hours_start" jsonschema:"required,pattern=^[0-9]{2}:[0-9]{2}$"`
	BusinessHoursEnd   string `json:"business_hours_end" yaml:"business_hours_end" jsonschema:"required,pattern=^[0-9]{2}:[0-9]{2}$"`
	// BusinessDays are weekday indices, 0 is Monday.
	BusinessDays             []int  `json:"business_days" yaml:"business_days"`
	SlotsToPropose           int    `json:"slots_to_propose" yaml:"slots_to_propose" jsonschema:"default=3"`
	DaysToCheckAvailability  int    `json:"days_to_check_availability" yaml:"days_to_check_availability" jsonschema:"default=7"`
	SalesRepresentativeEmail string `json:"sales_representative_email" yaml:"sales_representative_email"`
}

func (p *Profile) applyDefaults() {
	if p.AgentName == "" {
		p.AgentName = DefaultAgentName
	}
	if len(p.Scheduling.BusinessDays) == 0 {
		p.Scheduling.BusinessDays = []int{0, 1, 2, 3, 4}
	}
	if p.Scheduling.SlotsToPropose <= 0 {
		p.Scheduling.SlotsToPropose = 3
	}
	if p.Scheduling.DaysToCheckAvailability <= 0 {
		p.Scheduling.DaysToCheckAvailability = 7
	}
}

// Validate reports the first essential field that is missing or malformed.
// The returned error wraps [ErrIncompleteProfile].
func (p Profile) Validate() error {
	if strings.TrimSpace(p.CompanyName) == "" {
		return fmt.Errorf("%w: company_name missing", ErrIncompleteProfile)
	}
	if _, err := p.Scheduling.BusinessHours(); err != nil {
		return err
	}
	if p.Scheduling.MeetingDuration() <= 0 {
		return fmt.Errorf("%w: meeting_duration_minutes must be positive", ErrIncompleteProfile)
	}
	if strings.TrimSpace(p.Scheduling.CalendarID) == "" {
		return fmt.Errorf("%w: calendar_id missing", ErrIncompleteProfile)
	}
	return nil
}

// BusinessHours converts the textual policy, checking the timezone as well.
func (s SchedulingParameters) BusinessHours() (scheduling.BusinessHours, error) {
	if s.Timezone == "" {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: timezone missing", ErrIncompleteProfile)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: timezone: %w", ErrIncompleteProfile, err)
	}

	start, err := scheduling.ParseClock(s.BusinessHoursStart)
	if err != nil {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: business_hours_start: %w", ErrIncompleteProfile, err)
	}
	end, err := scheduling.ParseClock(s.BusinessHoursEnd)
	if err != nil {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: business_hours_end: %w", ErrIncompleteProfile, err)
	}
	weekdays, err := scheduling.WeekdaysFromIndices(s.BusinessDays)
	if err != nil {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: business_days: %w", ErrIncompleteProfile, err)
	}

	hours := scheduling.BusinessHours{Start: start, End: end, Weekdays: weekdays}
	if hours.Length() <= 0 {
		return scheduling.BusinessHours{}, fmt.Errorf("%w: business hours end before they start", ErrIncompleteProfile)
	}
	return hours, nil
}

func (s SchedulingParameters) MeetingDuration() time.Duration {
	return time.Duration(s.MeetingDurationMinutes) * time.Minute
}

func (s SchedulingParameters) LookAhead() time.Duration {
	return time.Duration(s.DaysToCheckAvailability) * 24 * time.Hour
}

// ParseProfile decodes a profile. YAML is a superset of JSON, format selects
// the stricter JSON decoder for ".json".
func ParseProfile(data []byte, format string) (Profile, error) {
	var profile Profile
	switch strings.ToLower(format) {
	case ".json", "json":
		if err := json.Unmarshal(data, &profile); err != nil {
			return Profile{}, fmt.Errorf("invalid profile: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return Profile{}, fmt.Errorf("invalid profile: %w", err)
		}
	}

	profile.applyDefaults()
	return profile, nil
}

// LoadProfile reads a JSON or YAML company profile, chosen by extension.
func LoadProfile(_ context.Context, path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read company profile: %w", err)
	}

	profile, err := ParseProfile(data, filepath.Ext(path))
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", path, err)
	}
	return profile, nil
}
