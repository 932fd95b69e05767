package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	applogger "PriceTrack/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	ID    string `param:"id" validate:"required"`
	Name  string `json:"name" validate:"required,max=5"`
	Limit int    `json:"limit" default:"10" validate:"gte=1,lte=20"`
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/items/7", `{"name":"lamp"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")

	var req sampleRequest
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, "7", req.ID)
	assert.Equal(t, "lamp", req.Name)
	assert.Equal(t, 10, req.Limit)
}

func TestReadAndValidateRequestReportsFields(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/items/7", `{"name":"toolong","limit":50}`)
	c.SetParamNames("id")
	c.SetParamValues("7")

	var req sampleRequest
	errs, ok := ReadAndValidateRequest(c, &req).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_MAX", errs[0].Code)
	assert.Equal(t, "Name must be at most 5 characters", errs[0].Message)
	assert.Equal(t, "ERR_LTE", errs[1].Code)
}

func TestAppErrorResponseUsesStatus(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")

	require.NoError(t, AppErrorResponse(c, ConflictError("already tracked")))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var body APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, body.Status)
	assert.Equal(t, "Conflict", body.Message)
}

func TestAppErrorResponseHidesUnknownErrors(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")

	require.NoError(t, AppErrorResponse(c, errors.New("db exploded")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestAppErrorWrapsCause(t *testing.T) {
	cause := errors.New("gateway down")
	err := BadGatewayError("AI gateway error").WithError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "AI gateway error: gateway down", err.Error())
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-Key"))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("loading"))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": r.URL.Path})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL+"/"), WithHeader("X-Key", "secret"))

	var out map[string]string
	require.NoError(t, client.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/ok"}, &out))
	assert.Equal(t, "/ok", out["echo"])

	err := client.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "/fail"}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "loading", string(se.Body))
}

func TestServerHealthAndRecover(t *testing.T) {
	s := NewServer(applogger.Nop(), nil, WithMetricsPath(""))
	s.Echo().GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientEncodesJSONBodyAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"got": in["text"]})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	var out map[string]string
	err := client.SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    "/predict",
		Query:  url.Values{"limit": {"3"}},
		Body:   map[string]string{"text": "great phone"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "great phone", out["got"])
}
