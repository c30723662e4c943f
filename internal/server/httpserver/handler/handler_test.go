package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/controller"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

type fakeController struct {
	mu       sync.Mutex
	store    *controller.Store
	metadata []*command.ZoneMetadataResponse
	err      error
	timeout  time.Duration
}

func (f *fakeController) Deploy(_ context.Context, zone string, units []command.Unit) (*command.DeploymentCommand, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.store.Put(zone, units), nil
}

func (f *fakeController) ZoneMetadata(_ context.Context, zone string, timeout time.Duration) ([]*command.ZoneMetadataResponse, error) {
	f.mu.Lock()
	f.timeout = timeout
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.metadata, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testView() *view.View {
	return view.New(4,
		"acme:controller:hq:c1",
		"acme:participant:eu.west:p1",
		"acme:participant:eu.west:p2",
		"acme:participant:us.east:p3",
		"legacy-node",
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestHandler_Health(t *testing.T) {
	h := New(Config{Logger: quietLogger()})

	rec, resp := do(t, h, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", resp.Code)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", data["status"])
}

func TestHandler_Ready(t *testing.T) {
	ready := false
	h := New(Config{
		Logger: quietLogger(),
		Ready: func() (bool, string) {
			if ready {
				return true, "updated"
			}
			return false, "not_updated"
		},
	})

	rec, resp := do(t, h, "GET", "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["ready"])
	assert.Equal(t, "not_updated", data["state"])

	ready = true
	rec, resp = do(t, h, "GET", "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "updated", resp.Data.(map[string]any)["state"])
}

func TestHandler_Ready_DefaultsToReady(t *testing.T) {
	rec, _ := do(t, New(Config{Logger: quietLogger()}), "GET", "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_View(t *testing.T) {
	v := testView()
	h := New(Config{
		LocalName: "acme:participant:eu.west:p1",
		View:      func() *view.View { return v },
		Logger:    quietLogger(),
	})

	rec, resp := do(t, h, "GET", "/v1/view", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got ViewResponse
	decodeData(t, resp, &got)
	assert.Equal(t, "acme:participant:eu.west:p1", got.Local)
	assert.Equal(t, uint64(4), got.ViewID)
	require.Len(t, got.Members, 5)
	assert.Equal(t, "controller", got.Members[0].Role)
	assert.Equal(t, 0, got.Members[0].Seniority)
	assert.Equal(t, "eu.west", got.Members[1].Zone)
	assert.Equal(t, "p1", got.Members[1].InstanceID)
	assert.True(t, got.Members[4].Legacy)
	assert.Empty(t, got.Members[4].Role)

	assert.Equal(t, "acme:controller:hq:c1", got.Controller)
	assert.Equal(t, map[string]string{
		"eu.west": "acme:participant:eu.west:p1",
		"us.east": "acme:participant:us.east:p3",
	}, got.Leaders)
}

func TestHandler_View_NoView(t *testing.T) {
	rec, resp := do(t, New(Config{Logger: quietLogger()}), "GET", "/v1/view", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ZM-MSG-5030", resp.Code)
}

func TestHandler_ControllerRoutesAbsentOnParticipants(t *testing.T) {
	h := New(Config{Logger: quietLogger()})

	for _, tc := range []struct{ method, path string }{
		{"GET", "/v1/deployments"},
		{"PUT", "/v1/deployments/eu.west"},
		{"GET", "/v1/zones/eu.west/metadata"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func controllerHandler() (*Handler, *fakeController) {
	store := controller.NewStore()
	fc := &fakeController{store: store}
	return New(Config{
		Controller:      fc,
		Deployments:     store,
		MetadataTimeout: 750 * time.Millisecond,
		Logger:          quietLogger(),
	}), fc
}

func TestHandler_Deploy(t *testing.T) {
	h, _ := controllerHandler()

	rec, resp := do(t, h, "PUT", "/v1/deployments/eu.west", `{"units":["billing","ledger"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var d DeploymentInfo
	decodeData(t, resp, &d)
	assert.Equal(t, "eu.west", d.Zone)
	assert.Equal(t, uint64(1), d.Revision)
	assert.Equal(t, []string{"billing", "ledger"}, d.Units)

	// A second deployment bumps the revision.
	_, resp = do(t, h, "PUT", "/v1/deployments/eu.west", `{"units":["billing"]}`)
	decodeData(t, resp, &d)
	assert.Equal(t, uint64(2), d.Revision)

	_, resp = do(t, h, "GET", "/v1/deployments/eu.west", "")
	decodeData(t, resp, &d)
	assert.Equal(t, []string{"billing"}, d.Units)

	do(t, h, "PUT", "/v1/deployments/us.east", `{}`)
	_, resp = do(t, h, "GET", "/v1/deployments", "")
	var all []DeploymentInfo
	decodeData(t, resp, &all)
	require.Len(t, all, 2)
	assert.Equal(t, "eu.west", all[0].Zone)
	assert.Equal(t, "us.east", all[1].Zone)
	assert.Empty(t, all[1].Units)
}

func TestHandler_GetDeployment_Unknown(t *testing.T) {
	h, _ := controllerHandler()

	rec, resp := do(t, h, "GET", "/v1/deployments/nowhere", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var d DeploymentInfo
	decodeData(t, resp, &d)
	assert.Equal(t, uint64(0), d.Revision)
	assert.Empty(t, d.Units)
}

func TestHandler_Deploy_Validation(t *testing.T) {
	h, _ := controllerHandler()

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed body", "/v1/deployments/eu.west", `{"units":`},
		{"empty unit", "/v1/deployments/eu.west", `{"units":[""]}`},
		{"colon in zone", "/v1/deployments/eu:west", `{"units":["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, h, "PUT", tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "ZM-ARG-1001", resp.Code)
		})
	}
}

func TestHandler_Deploy_ServiceError(t *testing.T) {
	h, fc := controllerHandler()
	fc.err = domain.ErrMessaging.WithDetails("transport down")

	rec, resp := do(t, h, "PUT", "/v1/deployments/eu.west", `{"units":["a"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ZM-MSG-5000", resp.Code)
	assert.Equal(t, "ZM-MSG-5000", rec.Header().Get("X-Error-Code"))
}

func TestHandler_ZoneMetadata(t *testing.T) {
	h, fc := controllerHandler()
	fc.metadata = []*command.ZoneMetadataResponse{
		{Zone: "eu.west", TransportMetadata: map[string]string{"endpoint": "tcp://p1:9000"}},
	}

	rec, resp := do(t, h, "GET", "/v1/zones/eu.west/metadata", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []command.ZoneMetadataResponse
	decodeData(t, resp, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "tcp://p1:9000", got[0].TransportMetadata["endpoint"])

	fc.mu.Lock()
	assert.Equal(t, 750*time.Millisecond, fc.timeout)
	fc.mu.Unlock()
}

func TestHandler_ZoneMetadata_Timeout(t *testing.T) {
	tests := []struct {
		query  string
		status int
		want   time.Duration
	}{
		{"?timeout=2s", http.StatusOK, 2 * time.Second},
		{"?timeout=150ms", http.StatusOK, 150 * time.Millisecond},
		{"?timeout=", http.StatusOK, 750 * time.Millisecond},
		{"?timeout=soon", http.StatusBadRequest, 0},
		{"?timeout=-1s", http.StatusBadRequest, 0},
		{"?timeout=0s", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			h, fc := controllerHandler()

			rec, resp := do(t, h, "GET", "/v1/zones/eu.west/metadata"+tt.query, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			fc.mu.Lock()
			defer fc.mu.Unlock()
			if tt.status != http.StatusOK {
				assert.Equal(t, "ZM-ARG-1001", resp.Code)
				assert.Zero(t, fc.timeout, "controller must not be asked")
				return
			}
			assert.Equal(t, tt.want, fc.timeout)
		})
	}
}

func TestHandler_ZoneMetadata_Empty(t *testing.T) {
	h, _ := controllerHandler()

	_, resp := do(t, h, "GET", "/v1/zones/nowhere/metadata", "")
	var got []command.ZoneMetadataResponse
	decodeData(t, resp, &got)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHandler_ZoneMetadata_NoView(t *testing.T) {
	h, fc := controllerHandler()
	fc.err = domain.ErrDestinationUnavailable

	rec, _ := do(t, h, "GET", "/v1/zones/eu.west/metadata", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandler_PlainError(t *testing.T) {
	h, fc := controllerHandler()
	fc.err = io.ErrUnexpectedEOF

	rec, resp := do(t, h, "PUT", "/v1/deployments/eu.west", `{"units":["a"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "ZM-SYS-5000", resp.Code)
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"ZM-TOPO-4040", http.StatusNotFound},
		{"ZM-EXEC-4040", http.StatusNotFound},
		{"ZM-MSG-5030", http.StatusServiceUnavailable},
		{"ZM-MSG-5040", http.StatusGatewayTimeout},
		{"ZM-MSG-4000", http.StatusBadRequest},
		{"ZM-ARG-1001", http.StatusBadRequest},
		{"ZM-MSG-5000", http.StatusInternalServerError},
		{"ZM-EXEC-5000", http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestResponse_Envelope(t *testing.T) {
	h := New(Config{Logger: quietLogger()})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-abc", resp.RequestID)
	assert.Equal(t, "Success", resp.Message)
	assert.NotZero(t, resp.Timestamp)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
