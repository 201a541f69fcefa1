// Package flows implements the two prompt operations of NeuraForge: dashboard
// generation from raw business data and insights generation from an uploaded
// data file.
package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/apimodels"
	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/prompt"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

const (
	DashboardFlow = "generateDashboardFlow"
	InsightsFlow  = "getBusinessInsightsFlow"
)

var (
	DashboardInput = schema.MustNew("generateDashboardInput",
		schema.Field{
			Name:        "businessData",
			Description: "The business data in a structured format (e.g. CSV, JSON).",
			MinLength:   1,
		},
	)

	DashboardOutput = schema.MustNew("generateDashboardOutput",
		schema.Field{
			Name:        "dashboard",
			Description: "A string representation of an interactive dashboard tailored to the business data, using data visualization techniques.",
		},
	)

	InsightsInput = schema.MustNew("getBusinessInsightsInput",
		schema.Field{
			Name:        "businessData",
			Description: "The uploaded business file as a data URI: data:<mimetype>;base64,<encoded_data>.",
			MinLength:   1,
		},
		schema.Field{
			Name:        "businessType",
			Description: "The type of business, e.g. retail, restaurant.",
			MinLength:   2,
		},
	)

	InsightsOutput = schema.MustNew("getBusinessInsightsOutput",
		schema.Field{
			Name:        "insights",
			Description: "Actionable business insights based on the uploaded data.",
		},
	)
)

// Service exposes the prompt operations. The zero value is not usable; build
// one with New.
type Service struct {
	Dashboard *Flow[apimodels.DashboardRequest, apimodels.DashboardResponse]
	Insights  *Flow[apimodels.InsightsRequest, apimodels.InsightsResponse]
}

func New(eng engine.Engine, logger *zap.Logger) *Service {
	return &Service{
		Dashboard: NewFlow[apimodels.DashboardRequest, apimodels.DashboardResponse](
			DashboardFlow, prompt.Dashboard, DashboardInput, DashboardOutput, eng, logger),
		Insights: NewFlow[apimodels.InsightsRequest, apimodels.InsightsResponse](
			InsightsFlow, prompt.Insights, InsightsInput, InsightsOutput, eng, logger),
	}
}

// Names lists the flows the service exposes.
func (s *Service) Names() []string {
	return []string{s.Dashboard.Name(), s.Insights.Name()}
}

// GenerateDashboard turns raw business data into a textual dashboard description.
func (s *Service) GenerateDashboard(ctx context.Context, req apimodels.DashboardRequest) (*apimodels.DashboardResponse, error) {
	out, err := s.Dashboard.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateInsights produces an insights report for a data URI encoded file.
// The data URI is forwarded to the engine as is.
func (s *Service) GenerateInsights(ctx context.Context, req apimodels.InsightsRequest) (*apimodels.InsightsResponse, error) {
	out, err := s.Insights.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
