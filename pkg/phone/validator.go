package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers submitted without a country
// prefix; most form traffic originates there.
const DefaultRegion = "IN"

// Formatter renders submitted phone numbers for display and export.
// Lead records carry numbers exactly as typed into the form, so
// formatting has to be forgiving.
type Formatter struct {
	region string
}

// NewFormatter creates a formatter that assumes region for numbers
// without an international prefix. An empty region falls back to
// DefaultRegion.
func NewFormatter(region string) *Formatter {
	if region == "" {
		region = DefaultRegion
	}
	return &Formatter{region: region}
}

// Display returns the international format of the number, or the
// trimmed input unchanged when it cannot be parsed as a phone number.
func (f *Formatter) Display(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(trimmed, f.region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL)
}

// Normalize returns the E.164 form of the number for dedupe and
// outbound dialing.
func (f *Formatter) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	parsed, err := phonenumbers.Parse(trimmed, f.region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number: %s", trimmed)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// IsValid reports whether the number parses as a valid number for the
// formatter's region.
func (f *Formatter) IsValid(raw string) bool {
	parsed, err := phonenumbers.Parse(strings.TrimSpace(raw), f.region)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(parsed)
}
