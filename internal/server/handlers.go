package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/neuraforge/neuraforge-ai/apimodels"
	"github.com/neuraforge/neuraforge-ai/internal/dataurl"
	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/flows"
	"github.com/neuraforge/neuraforge-ai/internal/metrics"
)

const (
	// A 5 MB file grows by a third once base64 encoded.
	maxJSONBodyBytes = 8 << 20
	// Multipart framing and the businessType field on top of the file itself.
	maxUploadBodyBytes = dataurl.MaxUploadBytes + 1<<20

	codeInvalidRequest  = "INVALID_REQUEST"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeUnsupportedType = "UNSUPPORTED_MEDIA_TYPE"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeJSON(w, r)
	if !ok {
		return
	}

	result, err := s.service.Dashboard.Run(r.Context(), raw)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.decodeJSON(w, r)
	if !ok {
		return
	}

	result, err := s.service.Insights.Run(r.Context(), raw)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleInsightsUpload accepts the insights form as multipart data: a "file"
// part and a "businessType" field. The file is checked against the upload
// restrictions and forwarded as a data URI.
func (s *Server) handleInsightsUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)
	if err := r.ParseMultipartForm(maxUploadBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Max file size is 5MB.", nil)
			return
		}
		s.writeError(w, r, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("Invalid multipart form: %v", err), nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, flows.CodeInvalidInput, "File is required.",
			[]apimodels.Violation{{Field: "file", Reason: "file is required"}})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, dataurl.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("Error reading file: %v", err), nil)
		return
	}

	uri, err := dataurl.EncodeUpload(header.Header.Get("Content-Type"), data)
	switch {
	case errors.Is(err, dataurl.ErrTooLarge):
		s.writeError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Max file size is 5MB.", nil)
		return
	case errors.Is(err, dataurl.ErrUnsupportedType):
		s.writeError(w, r, http.StatusUnsupportedMediaType, codeUnsupportedType, ".csv, .xls and .xlsx files are accepted.", nil)
		return
	case err != nil:
		s.writeError(w, r, http.StatusBadRequest, flows.CodeInvalidInput, err.Error(),
			[]apimodels.Violation{{Field: "file", Reason: err.Error()}})
		return
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	s.logger.Debug("Received insights upload",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(data)),
		zap.String("request_id", RequestIDFrom(r.Context())),
	)

	result, err := s.service.GenerateInsights(r.Context(), apimodels.InsightsRequest{
		BusinessData: uri,
		BusinessType: r.FormValue("businessType"),
	})
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads the request body as a JSON object. On failure it writes the
// error response and returns false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer r.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request body too large", nil)
			return nil, false
		}
		s.writeError(w, r, http.StatusBadRequest, codeInvalidRequest, fmt.Sprintf("Invalid request: %v", err), nil)
		return nil, false
	}
	return raw, true
}

func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	code := flows.Code(err)

	var (
		status     int
		message    string
		violations []apimodels.Violation
	)

	var inErr *flows.InvalidInputError
	var engErr *engine.Error
	switch {
	case errors.As(err, &inErr):
		status, message = http.StatusBadRequest, "Invalid input"
		for _, v := range inErr.Violations {
			violations = append(violations, apimodels.Violation{Field: v.Field, Reason: v.Reason})
		}
	case errors.Is(err, flows.ErrEngineOutputInvalid):
		status, message = http.StatusBadGateway, "The AI engine returned an unusable response"
	case errors.As(err, &engErr) && engErr.Timeout():
		status, message = http.StatusGatewayTimeout, "The AI engine did not respond in time"
	case errors.Is(err, engine.ErrEngine):
		status, message = http.StatusBadGateway, "The AI engine request failed"
	default:
		status, message = http.StatusInternalServerError, "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Flow request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err),
		)
	}

	s.writeError(w, r, status, code, message, violations)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, violations []apimodels.Violation) {
	writeJSON(w, status, apimodels.ErrorResponse{
		Error:      message,
		Code:       code,
		Violations: violations,
		RequestID:  RequestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
