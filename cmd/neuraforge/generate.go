package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuraforge/neuraforge-ai/apimodels"
	"github.com/neuraforge/neuraforge-ai/internal/dataurl"
)

var (
	dashboardFile string
	insightsFile  string
	businessType  string
)

// dashboardCmd runs the dashboard flow on a local file
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Generate a dashboard description from business data",
	Long: `Read business data (CSV, JSON or plain text) from --file, or stdin when
--file is "-" or omitted, and print the generated dashboard as JSON.`,
	RunE: runDashboard,
}

// insightsCmd runs the insights flow on a local spreadsheet
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Generate business insights from a .csv, .xls or .xlsx file",
	RunE:  runInsights,
}

func init() {
	dashboardCmd.Flags().StringVarP(&dashboardFile, "file", "f", "-", "Business data file, - for stdin")

	insightsCmd.Flags().StringVarP(&insightsFile, "file", "f", "", "Spreadsheet to analyse")
	insightsCmd.Flags().StringVarP(&businessType, "business-type", "b", "", "Type of business, e.g. retail or restaurant")
	_ = insightsCmd.MarkFlagRequired("file")
	_ = insightsCmd.MarkFlagRequired("business-type")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if dashboardFile == "" || dashboardFile == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(dashboardFile)
	}
	if err != nil {
		return fmt.Errorf("read business data: %w", err)
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.logger.Sync() //nolint:errcheck

	resp, err := a.service.GenerateDashboard(cmd.Context(), apimodels.DashboardRequest{
		BusinessData: string(data),
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runInsights(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(insightsFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", insightsFile, err)
	}

	uri, err := dataurl.EncodeUpload(mimeFromExt(insightsFile), data)
	if err != nil {
		return fmt.Errorf("%s: %w", insightsFile, err)
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.logger.Sync() //nolint:errcheck

	resp, err := a.service.GenerateInsights(cmd.Context(), apimodels.InsightsRequest{
		BusinessData: uri,
		BusinessType: businessType,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

// mimeFromExt maps the accepted extensions to their media type. Anything else
// is left to content sniffing.
func mimeFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return dataurl.MIMECSV
	case ".xls":
		return dataurl.MIMEXLS
	case ".xlsx":
		return dataurl.MIMEXLSX
	default:
		return ""
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
