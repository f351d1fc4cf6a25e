package models

// LeadListRequest represents list/projection parameters for leads.
// Every filter is optional; active filters AND together.
type LeadListRequest struct {
	View      string `query:"view" validate:"omitempty,oneof=dashboard pipeline companion"`
	Search    string `query:"search"`
	Platform  string `query:"platform" validate:"omitempty,oneof=meta google"`
	Goal      string `query:"goal" validate:"omitempty,oneof=lead sales"`
	FormType  string `query:"form_type" validate:"omitempty,oneof=book-demo contact"`
	Status    string `query:"status" validate:"omitempty,oneof=leads contacted won lost"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Sort      string `query:"sort" validate:"omitempty,oneof=submitted budget name"`
	Dir       string `query:"dir" validate:"omitempty,oneof=asc desc"`
	Toggle    string `query:"toggle" validate:"omitempty,oneof=submitted budget name"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// UpdateStatusRequest represents a request to change a lead's status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=leads contacted won lost"`
}

// LeadResponse represents a single lead in API responses
type LeadResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Company       string `json:"company,omitempty"`
	Platform      string `json:"platform,omitempty"`
	PlatformLabel string `json:"platform_label,omitempty"`
	Goal          string `json:"goal,omitempty"`
	GoalLabel     string `json:"goal_label,omitempty"`
	FormType      string `json:"form_type,omitempty"`
	Category      string `json:"category,omitempty"`
	Budget        string `json:"budget,omitempty"`
	RevenueRange  string `json:"revenue_range,omitempty"`
	Goals         string `json:"goals,omitempty"`
	Message       string `json:"message,omitempty"`
	Website       string `json:"website,omitempty"`
	Status        string `json:"status"`
	StatusLabel   string `json:"status_label"`
	SubmittedAt   string `json:"submitted_at,omitempty"`
	Collection    string `json:"collection,omitempty"`
}

// LeadListResponse represents a paginated, filtered list of leads
type LeadListResponse struct {
	Data       []LeadResponse `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
	Filters    AppliedFilters `json:"filters"`
	Stats      StatsSummary   `json:"stats"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// AppliedFilters shows what filters were applied to the projection
type AppliedFilters struct {
	Search    string `json:"search,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Goal      string `json:"goal,omitempty"`
	FormType  string `json:"form_type,omitempty"`
	Status    string `json:"status,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Dir       string `json:"dir,omitempty"`
}

// StatsSummary holds aggregates over the filtered projection, not the
// raw list. AvgBudget averages only leads whose budget parses as a
// number; those leads still count toward Total.
type StatsSummary struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByPlatform  map[string]int `json:"by_platform"`
	ByFormType  map[string]int `json:"by_form_type"`
	WithBudget  int            `json:"with_budget"`
	TotalBudget float64        `json:"total_budget"`
	AvgBudget   float64        `json:"avg_budget"`
}

// PipelineColumn is one kanban column of the pipeline view.
type PipelineColumn struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Leads []LeadResponse `json:"leads"`
}

// PipelineResponse groups the filtered projection by status column.
type PipelineResponse struct {
	Columns []PipelineColumn `json:"columns"`
	Filters AppliedFilters   `json:"filters"`
	Total   int              `json:"total"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
