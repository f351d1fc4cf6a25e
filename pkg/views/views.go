package views

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/evoclabs/crm/pkg/models"
)

// View identifies one of the lead surfaces.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewPipeline  View = "pipeline"
	ViewCompanion View = "companion"
)

// Sort keys and directions.
const (
	SortSubmitted = "submitted"
	SortBudget    = "budget"
	SortName      = "name"

	DirAsc  = "asc"
	DirDesc = "desc"
)

const dateLayout = "2006-01-02"

// dayMillis extends the end date so the range is inclusive of the
// whole end day.
const dayMillis = int64(24 * time.Hour / time.Millisecond)

// State holds one projection request: filters, sort, page. It is
// derived from the query string and applied as a pure function over
// the session lead list.
type State struct {
	View     View
	Search   string
	Platform string
	Goal     string
	FormType string
	Status   string

	// startMillis/endMillis are 0 when unset. endMillis already
	// includes the end-of-day extension.
	startMillis int64
	endMillis   int64
	startDate   string
	endDate     string

	SortKey string
	SortDir string

	Page  int
	Limit int
}

// NewState builds a State from a validated list request. Unknown or
// empty values fall back to defaults: dashboard view, submitted desc,
// page 1.
func NewState(req models.LeadListRequest, defaultLimit int) State {
	st := State{
		View:     View(req.View),
		Search:   strings.TrimSpace(req.Search),
		Platform: req.Platform,
		Goal:     req.Goal,
		FormType: req.FormType,
		Status:   req.Status,
		SortKey:  req.Sort,
		SortDir:  req.Dir,
		Page:     req.Page,
		Limit:    req.Limit,
	}
	if st.View == "" {
		st.View = ViewDashboard
	}
	if st.SortKey == "" {
		st.SortKey = SortSubmitted
	}
	if st.SortDir == "" {
		st.SortDir = DirDesc
	}
	if st.Page < 1 {
		st.Page = 1
	}
	if st.Limit < 1 {
		st.Limit = defaultLimit
	}

	// toggle applies a header click on top of the carried sort state
	if req.Toggle != "" {
		st = st.NextSort(req.Toggle)
	}

	if t, err := time.Parse(dateLayout, req.StartDate); err == nil && req.StartDate != "" {
		st.startMillis = t.UnixMilli()
		st.startDate = req.StartDate
	}
	if t, err := time.Parse(dateLayout, req.EndDate); err == nil && req.EndDate != "" {
		st.endMillis = t.UnixMilli() + dayMillis
		st.endDate = req.EndDate
	}
	return st
}

// NextSort returns the state after a header click on key: clicking the
// active key flips the direction, clicking a new key selects it
// descending.
func (s State) NextSort(key string) State {
	if s.SortKey == key {
		if s.SortDir == DirDesc {
			s.SortDir = DirAsc
		} else {
			s.SortDir = DirDesc
		}
		return s
	}
	s.SortKey = key
	s.SortDir = DirDesc
	return s
}

// Filters reports the active filters for echoing back in responses.
func (s State) Filters() models.AppliedFilters {
	return models.AppliedFilters{
		Search:    s.Search,
		Platform:  s.Platform,
		Goal:      s.Goal,
		FormType:  s.FormType,
		Status:    s.Status,
		StartDate: s.startDate,
		EndDate:   s.endDate,
		Sort:      s.SortKey,
		Dir:       s.SortDir,
	}
}

// Project applies the state's filters and sort to the session list and
// returns a new slice. The input is never mutated.
func (s State) Project(leads []models.Lead) []models.Lead {
	out := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if s.matches(l) {
			out = append(out, l)
		}
	}
	s.sortLeads(out)
	return out
}

func (s State) matches(l models.Lead) bool {
	if s.Search != "" {
		q := strings.ToLower(s.Search)
		if !strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.ContactEmail()), q) &&
			!strings.Contains(strings.ToLower(l.Company), q) &&
			!strings.Contains(strings.ToLower(l.Category), q) {
			return false
		}
	}
	if s.Platform != "" && l.Platform != s.Platform {
		return false
	}
	if s.Goal != "" && l.Target != s.Goal {
		return false
	}
	if s.FormType != "" && l.FormType != s.FormType {
		return false
	}
	if s.Status != "" && string(l.Status) != s.Status {
		return false
	}
	if s.startMillis != 0 && l.SubmittedAt < s.startMillis {
		return false
	}
	if s.endMillis != 0 && l.SubmittedAt >= s.endMillis {
		return false
	}
	return true
}

func (s State) sortLeads(leads []models.Lead) {
	asc := s.SortDir == DirAsc
	var less func(a, b models.Lead) bool

	switch s.SortKey {
	case SortBudget:
		less = func(a, b models.Lead) bool {
			return a.BudgetValue() < b.BudgetValue()
		}
	case SortName:
		// Collators are not safe for concurrent use, so each sort
		// gets its own.
		coll := collate.New(language.English, collate.IgnoreCase)
		less = func(a, b models.Lead) bool {
			return coll.CompareString(a.Name, b.Name) < 0
		}
	default:
		less = func(a, b models.Lead) bool {
			return a.SubmittedAt < b.SubmittedAt
		}
	}

	sort.SliceStable(leads, func(i, j int) bool {
		if asc {
			return less(leads[i], leads[j])
		}
		return less(leads[j], leads[i])
	})
}

// Stats aggregates the filtered projection. AvgBudget averages only
// leads whose budget parses as a number.
func Stats(leads []models.Lead) models.StatsSummary {
	stats := models.StatsSummary{
		Total:      len(leads),
		ByStatus:   map[string]int{},
		ByPlatform: map[string]int{},
		ByFormType: map[string]int{},
	}
	for _, l := range leads {
		stats.ByStatus[string(l.Status)]++
		if l.Platform != "" {
			stats.ByPlatform[l.Platform]++
		}
		if l.FormType != "" {
			stats.ByFormType[l.FormType]++
		}
		if l.HasNumericBudget() {
			stats.WithBudget++
			stats.TotalBudget += l.BudgetValue()
		}
	}
	if stats.WithBudget > 0 {
		stats.AvgBudget = stats.TotalBudget / float64(stats.WithBudget)
	}
	return stats
}

// Paginate slices one page out of the projection. Out-of-range pages
// clamp into [1, totalPages]; an empty projection yields page 1 of 1
// with no rows.
func Paginate(leads []models.Lead, page, limit int) ([]models.Lead, models.PaginationInfo) {
	if limit < 1 {
		limit = 1
	}
	total := len(leads)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	info := models.PaginationInfo{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
	return leads[start:end], info
}

// Pipeline groups the projection into status columns, preserving the
// projection's order within each column.
func Pipeline(leads []models.Lead) []models.PipelineColumn {
	columns := make([]models.PipelineColumn, 0, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		col := models.PipelineColumn{
			ID:    string(status),
			Title: status.Label(),
			Leads: []models.LeadResponse{},
		}
		for _, l := range leads {
			if l.Status == status {
				col.Leads = append(col.Leads, ToResponse(l))
			}
		}
		columns = append(columns, col)
	}
	return columns
}

// ToResponse converts a lead into its API shape.
func ToResponse(l models.Lead) models.LeadResponse {
	resp := models.LeadResponse{
		ID:            l.ID,
		Name:          l.Name,
		Email:         l.ContactEmail(),
		Phone:         l.PhoneNumber,
		Company:       l.Company,
		Platform:      l.Platform,
		PlatformLabel: models.PlatformLabel(l.Platform),
		Goal:          l.Target,
		GoalLabel:     models.GoalLabel(l.Target),
		FormType:      l.FormType,
		Category:      l.Category,
		Budget:        l.Budget,
		RevenueRange:  l.RevenueRange,
		Goals:         l.Goals,
		Message:       l.Message,
		Website:       l.Website,
		Status:        string(l.Status),
		StatusLabel:   l.Status.Label(),
		Collection:    l.Collection,
	}
	if l.SubmittedAt > 0 {
		resp.SubmittedAt = l.SubmittedTime().UTC().Format(time.RFC3339)
	}
	return resp
}

// ToResponses converts a page of leads.
func ToResponses(leads []models.Lead) []models.LeadResponse {
	out := make([]models.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, ToResponse(l))
	}
	return out
}
