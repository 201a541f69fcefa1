package apimodels

type DashboardResponse struct {
	// Textual description of the generated dashboard
	Dashboard string `json:"dashboard"`
}

type InsightsResponse struct {
	// Actionable insights about the uploaded data
	Insights string `json:"insights"`
}

type ErrorResponse struct {
	// Human readable message
	Error string `json:"error"`

	// Stable machine readable code, e.g. INVALID_INPUT
	Code string `json:"code"`

	// Field-level problems with the request, if any
	Violations []Violation `json:"violations,omitempty"`

	// Correlates the response with server logs
	RequestID string `json:"requestId,omitempty"`
}

type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
