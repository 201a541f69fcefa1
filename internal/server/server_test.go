package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/neuraforge/neuraforge-ai/apimodels"
	"github.com/neuraforge/neuraforge-ai/internal/config"
	"github.com/neuraforge/neuraforge-ai/internal/dataurl"
	"github.com/neuraforge/neuraforge-ai/internal/engine"
	"github.com/neuraforge/neuraforge-ai/internal/flows"
	"github.com/neuraforge/neuraforge-ai/internal/schema"
)

type stubEngine struct {
	payload string
	err     error

	calls  atomic.Int32
	prompt atomic.Value
}

func (s *stubEngine) Invoke(ctx context.Context, template, rendered string, output *schema.Schema) (json.RawMessage, error) {
	s.calls.Add(1)
	s.prompt.Store(rendered)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.payload), nil
}

func newTestServer(t *testing.T, eng engine.Engine) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg := config.Config{Server: config.ServerConfig{Port: "0", RequestTimeout: time.Minute}}
	return New(cfg, flows.New(eng, logger), logger).Handler()
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apimodels.ErrorResponse {
	t.Helper()
	var resp apimodels.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &stubEngine{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRequestIDIsGenerated(t *testing.T) {
	h := newTestServer(t, &stubEngine{})

	rec := postJSON(t, h, "/api/v1/dashboard", `{}`)

	id := rec.Header().Get(requestIDHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "request id %q is not a uuid", id)
	assert.Equal(t, id, decodeError(t, rec).RequestID)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestServer(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestDashboard(t *testing.T) {
	eng := &stubEngine{payload: `{"dashboard":"Revenue trend: line chart of monthly sales."}`}
	h := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/dashboard", `{"businessData":"month,revenue\nJan,100"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dashboard":"Revenue trend: line chart of monthly sales."}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, eng.prompt.Load(), "Jan,100")
}

func TestDashboardInvalidInput(t *testing.T) {
	eng := &stubEngine{payload: `{"dashboard":"x"}`}
	h := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/dashboard", `{"businessData":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, flows.CodeInvalidInput, resp.Code)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "businessData", resp.Violations[0].Field)
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, int32(0), eng.calls.Load())
}

func TestDashboardMalformedBody(t *testing.T) {
	eng := &stubEngine{}
	h := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/dashboard", `{"businessData":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, rec).Code)
	assert.Equal(t, int32(0), eng.calls.Load())
}

func TestInsights(t *testing.T) {
	eng := &stubEngine{payload: `{"insights":"Sales are up 12% week over week."}`}
	h := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/insights",
		`{"businessData":"data:text/csv;base64,QQ==","businessType":"Retail"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"insights":"Sales are up 12% week over week."}`, rec.Body.String())
}

func TestInsightsShortBusinessType(t *testing.T) {
	eng := &stubEngine{payload: `{"insights":"x"}`}
	h := newTestServer(t, eng)

	rec := postJSON(t, h, "/api/v1/insights",
		`{"businessData":"data:text/csv;base64,QQ==","businessType":"R"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, flows.CodeInvalidInput, resp.Code)
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, "businessType", resp.Violations[0].Field)
	assert.Equal(t, int32(0), eng.calls.Load())
}

func TestFlowErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		eng        *stubEngine
		wantStatus int
		wantCode   string
	}{
		{
			name:       "output missing field",
			eng:        &stubEngine{payload: `{"summary":"x"}`},
			wantStatus: http.StatusBadGateway,
			wantCode:   flows.CodeEngineOutputInvalid,
		},
		{
			name:       "output not json",
			eng:        &stubEngine{payload: `not json`},
			wantStatus: http.StatusBadGateway,
			wantCode:   flows.CodeEngineOutputInvalid,
		},
		{
			name:       "engine failure",
			eng:        &stubEngine{err: &engine.Error{Template: "t", Err: errors.New("connection refused")}},
			wantStatus: http.StatusBadGateway,
			wantCode:   flows.CodeEngineError,
		},
		{
			name:       "engine timeout",
			eng:        &stubEngine{err: &engine.Error{Template: "t", Err: context.DeadlineExceeded}},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   flows.CodeEngineError,
		},
		{
			name:       "unexpected failure",
			eng:        &stubEngine{err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   flows.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.eng)

			rec := postJSON(t, h, "/api/v1/dashboard", `{"businessData":"a,b"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func multipartUpload(t *testing.T, contentType string, data []byte, businessType string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="sales.csv"`)
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("businessType", businessType))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/insights/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestInsightsUpload(t *testing.T) {
	eng := &stubEngine{payload: `{"insights":"Review your weekend staffing."}`}
	h := newTestServer(t, eng)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartUpload(t, dataurl.MIMECSV, []byte("A"), "Restaurant"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"insights":"Review your weekend staffing."}`, rec.Body.String())
	assert.Contains(t, eng.prompt.Load(), "data:text/csv;base64,QQ==")
	assert.Contains(t, eng.prompt.Load(), "Restaurant")
}

func TestInsightsUploadRejections(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "missing file",
			contentType: dataurl.MIMECSV,
			wantStatus:  http.StatusBadRequest,
			wantCode:    flows.CodeInvalidInput,
		},
		{
			name:        "unsupported type",
			contentType: "application/pdf",
			data:        []byte("%PDF-1.4"),
			wantStatus:  http.StatusUnsupportedMediaType,
			wantCode:    codeUnsupportedType,
		},
		{
			name:        "too large",
			contentType: dataurl.MIMECSV,
			data:        bytes.Repeat([]byte("a"), dataurl.MaxUploadBytes+1),
			wantStatus:  http.StatusRequestEntityTooLarge,
			wantCode:    codePayloadTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &stubEngine{payload: `{"insights":"x"}`}
			h := newTestServer(t, eng)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, multipartUpload(t, tt.contentType, tt.data, "Retail"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			assert.Equal(t, int32(0), eng.calls.Load())
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &stubEngine{payload: `{"dashboard":"x"}`})
	postJSON(t, h, "/api/v1/dashboard", `{"businessData":"a"}`)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neuraforge_flow_requests_total")
}
