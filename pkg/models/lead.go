package models

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// LeadStatus represents the triage state of a lead.
type LeadStatus string

const (
	StatusLeads     LeadStatus = "leads"
	StatusContacted LeadStatus = "contacted"
	StatusWon       LeadStatus = "won"
	StatusLost      LeadStatus = "lost"
)

// Valid reports whether the status is one of the four known values.
func (s LeadStatus) Valid() bool {
	switch s {
	case StatusLeads, StatusContacted, StatusWon, StatusLost:
		return true
	}
	return false
}

// Label returns the presentation label for the status.
func (s LeadStatus) Label() string {
	switch s {
	case StatusContacted:
		return "Contacted"
	case StatusWon:
		return "Won"
	case StatusLost:
		return "Lost"
	default:
		return "New Lead"
	}
}

// AllStatuses lists the statuses in pipeline column order.
var AllStatuses = []LeadStatus{StatusLeads, StatusContacted, StatusWon, StatusLost}

// Presentation labels for classification enums.
var (
	PlatformLabels = map[string]string{
		"meta":   "Meta Ads",
		"google": "Google Ads",
	}
	GoalLabels = map[string]string{
		"lead":  "Lead Generation",
		"sales": "Sales / E-commerce",
	}
	FormTypeLabels = map[string]string{
		"book-demo": "Book Demo",
		"contact":   "Contact",
	}
)

// PlatformLabel returns the display label for a platform, falling back
// to the raw value for platforms we don't know about.
func PlatformLabel(platform string) string {
	if label, ok := PlatformLabels[platform]; ok {
		return label
	}
	return platform
}

// GoalLabel returns the display label for a goal/target value.
func GoalLabel(goal string) string {
	if label, ok := GoalLabels[goal]; ok {
		return label
	}
	return goal
}

// FormTypeLabel returns the display label for a form type.
func FormTypeLabel(formType string) string {
	if label, ok := FormTypeLabels[formType]; ok {
		return label
	}
	return formType
}

// Lead is a form-submission record fetched from the remote store.
// Field presence varies by form variant: a record has at least a name
// and one contact field, everything else is optional. Collection
// records which candidate collection the document was fetched from and
// drives the persistence fallback order for later writes; it is never
// stored remotely.
type Lead struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email,omitempty"`
	WorkEmail    string     `json:"work_email,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Company      string     `json:"company,omitempty"`
	Platform     string     `json:"platform,omitempty"`
	Target       string     `json:"target,omitempty"`
	FormType     string     `json:"form_type,omitempty"`
	Category     string     `json:"category,omitempty"`
	Budget       string     `json:"budget,omitempty"`
	RevenueRange string     `json:"revenue_range,omitempty"`
	Goals        string     `json:"goals,omitempty"`
	Message      string     `json:"message,omitempty"`
	Website      string     `json:"website,omitempty"`
	Status       LeadStatus `json:"status"`
	SubmittedAt  int64      `json:"submitted_at_ms"`
	Collection   string     `json:"collection,omitempty"`
}

// ContactEmail returns the preferred email for display and export.
func (l Lead) ContactEmail() string {
	if l.WorkEmail != "" {
		return l.WorkEmail
	}
	return l.Email
}

// BudgetOrRevenue returns whichever commercial field is present.
func (l Lead) BudgetOrRevenue() string {
	if l.Budget != "" {
		return l.Budget
	}
	return l.RevenueRange
}

// BudgetValue coerces the budget to a number for sorting and
// aggregation. Missing or non-numeric budgets coerce to 0.
func (l Lead) BudgetValue() float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(l.Budget), 64)
	if err != nil {
		return 0
	}
	return n
}

// HasNumericBudget reports whether the budget parses as a number.
// Leads without one are excluded from budget averages.
func (l Lead) HasNumericBudget() bool {
	trimmed := strings.TrimSpace(l.Budget)
	if trimmed == "" {
		return false
	}
	_, err := strconv.ParseFloat(trimmed, 64)
	return err == nil
}

// SubmittedTime returns the normalized submission instant.
func (l Lead) SubmittedTime() time.Time {
	return time.UnixMilli(l.SubmittedAt).UTC()
}

// FromFields builds a Lead from a raw document. Submissions come from
// several form variants, so contact, classification and timestamp
// fields all have aliases; normalization here is total and never
// fails (a record with garbage timestamps simply sorts as oldest).
func FromFields(id, collection string, fields map[string]any) Lead {
	lead := Lead{
		ID:           id,
		Name:         str(fields, "name"),
		Email:        str(fields, "email"),
		WorkEmail:    str(fields, "workEmail"),
		PhoneNumber:  firstStr(fields, "phoneNumber", "phone"),
		Company:      str(fields, "company"),
		Platform:     str(fields, "platform"),
		Target:       firstStr(fields, "target", "goal"),
		FormType:     str(fields, "formType"),
		Category:     str(fields, "category"),
		Budget:       str(fields, "budget"),
		RevenueRange: str(fields, "revenueRange"),
		Goals:        str(fields, "goals"),
		Message:      str(fields, "message"),
		Website:      str(fields, "website"),
		Status:       StatusLeads,
		Collection:   collection,
	}

	if status := LeadStatus(str(fields, "status")); status.Valid() {
		lead.Status = status
	}

	// createdAt wins over timestamp wins over submittedAt, the order
	// the views consult them in.
	for _, key := range []string{"createdAt", "timestamp", "submittedAt"} {
		if raw, ok := fields[key]; ok {
			if ms := ToMillis(raw); ms != 0 {
				lead.SubmittedAt = ms
				break
			}
		}
	}

	return lead
}

// ToMillis normalizes any of the timestamp shapes the store may hand
// us into epoch milliseconds. Normalization is total: unparseable or
// missing input yields 0, which sorts as earliest.
func ToMillis(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return parseTimeString(t)
	case time.Time:
		return t.UnixMilli()
	case bson.DateTime:
		return int64(t)
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case map[string]any:
		return secondsToMillis(t)
	case bson.M:
		return secondsToMillis(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return secondsToMillis(m)
	}
	return 0
}

func secondsToMillis(m map[string]any) int64 {
	raw, ok := m["seconds"]
	if !ok {
		return 0
	}
	switch s := raw.(type) {
	case int64:
		return s * 1000
	case int32:
		return int64(s) * 1000
	case int:
		return int64(s) * 1000
	case float64:
		return int64(s * 1000)
	}
	return 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func str(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func firstStr(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := str(fields, key); v != "" {
			return v
		}
	}
	return ""
}
