package apimodels

type DashboardRequest struct {
	// Raw business data in a structured text format (e.g. CSV, JSON)
	BusinessData string `json:"businessData"`
}

type InsightsRequest struct {
	// Uploaded file as a data URI: data:<mimetype>;base64,<encoded_data>
	BusinessData string `json:"businessData"`

	// The type of business, e.g. retail, restaurant
	BusinessType string `json:"businessType"`
}
