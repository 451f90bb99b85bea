package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/handlers"
	"go-chi-calculations/internal/observability"
	"go-chi-calculations/internal/storage/memory"
	"go-chi-calculations/internal/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	observability.Logger = zap.NewNop()
	if err := calculation.InitMetrics(); err != nil {
		t.Fatalf("initializing calculation metrics: %v", err)
	}
	if err := auth.InitMetrics(); err != nil {
		t.Fatalf("initializing auth metrics: %v", err)
	}

	store := memory.New()
	authSvc := auth.NewService(store, auth.NewTokenManager("test-secret", time.Hour), auth.NewMemoryBlacklist(), 8, zap.NewNop())
	calcSvc := calculation.NewService(store, zap.NewNop())

	return NewRouter(Deps{Calculations: calcSvc, Auth: authSvc, Ping: store.Ping})
}

func doJSON(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.ExecuteRequest(req, router)
}

// signup registers a user and returns a fresh access token.
func signup(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/auth/register", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password123","first_name":"Test","last_name":"User"}`)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/auth/login", "", `{"username":"`+username+`","password":"password123"}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	var tok auth.TokenResponse
	testutil.DecodeJSONBody(t, w.Body, &tok)
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", tok)
	}
	return tok.AccessToken
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(router, http.MethodGet, "/health", "", "")
	w := doJSON(router, http.MethodGet, "/metrics", "", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatal("expected http_requests_total in /metrics output")
	}
}

func TestCalculationLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "alice")

	// --- create ---
	w := doJSON(router, http.MethodPost, "/calculations", token, `{"type":"Division","inputs":[100,2,5]}`)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)

	requestID := w.Result().Header.Get(observability.RequestIDHeader)
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
	}

	var created calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &created)
	if created.Result != 10 || created.Type != calculation.Division {
		t.Fatalf("unexpected create response: %+v", created)
	}

	path := "/calculations/" + created.ID.String()

	// --- read ---
	w = doJSON(router, http.MethodGet, path, token, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	// --- update ---
	w = doJSON(router, http.MethodPut, path, token, `{"inputs":[9,3]}`)
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var updated calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &updated)
	if updated.Result != 3 || updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected update response: %+v", updated)
	}

	// --- update with empty body keeps the record ---
	w = doJSON(router, http.MethodPatch, path, token, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	// --- list ---
	w = doJSON(router, http.MethodGet, "/calculations", token, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var list []calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	// --- delete ---
	w = doJSON(router, http.MethodDelete, path, token, "")
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, path, token, "")
	testutil.CheckResponseCode(t, http.StatusNotFound, w.Code)
}

func TestCalculationErrors(t *testing.T) {
	router := newTestRouter(t)
	alice := signup(t, router, "alice")
	bob := signup(t, router, "bob")

	w := doJSON(router, http.MethodPost, "/calculations", alice, `{"type":"addition","inputs":[1,2]}`)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)
	var rec calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &rec)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
		code   string
	}{
		{name: "no token", method: http.MethodGet, path: "/calculations", want: http.StatusUnauthorized},
		{name: "division by zero", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":"division","inputs":[1,0]}`, want: http.StatusUnprocessableEntity, code: "unprocessable_entity"},
		{name: "one operand", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":"addition","inputs":[1]}`, want: http.StatusUnprocessableEntity},
		{name: "unknown type", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":"modulo","inputs":[1,2]}`, want: http.StatusUnprocessableEntity},
		{name: "non numeric input", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":"addition","inputs":[1,"x"]}`, want: http.StatusBadRequest, code: "bad_request"},
		{name: "inputs not a list", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":"addition","inputs":3}`, want: http.StatusBadRequest},
		{name: "broken json", method: http.MethodPost, path: "/calculations", token: alice, body: `{"type":`, want: http.StatusBadRequest},
		{name: "other owner read", method: http.MethodGet, path: "/calculations/" + rec.ID.String(), token: bob, want: http.StatusNotFound, code: "not_found"},
		{name: "other owner delete", method: http.MethodDelete, path: "/calculations/" + rec.ID.String(), token: bob, want: http.StatusNotFound},
		{name: "bad id", method: http.MethodGet, path: "/calculations/not-a-uuid", token: alice, want: http.StatusNotFound},
		{name: "update with one operand", method: http.MethodPut, path: "/calculations/" + rec.ID.String(), token: alice, body: `{"inputs":[5]}`, want: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(router, tc.method, tc.path, tc.token, tc.body)
			testutil.CheckResponseCode(t, tc.want, w.Code)

			var payload handlers.ErrorResponse
			testutil.DecodeJSONBody(t, w.Body, &payload)
			if payload.Error == "" {
				t.Fatal("expected error message in body")
			}
			if tc.code != "" && payload.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, payload.Code)
			}
		})
	}

	// bob's failed attempts did not touch alice's record
	w = doJSON(router, http.MethodGet, "/calculations/"+rec.ID.String(), alice, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var after calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &after)
	if after.Result != 3 {
		t.Fatalf("expected result 3, got %v", after.Result)
	}
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "carol")

	w := doJSON(router, http.MethodPost, "/auth/register", "",
		`{"username":"carol","email":"other@example.com","password":"password123"}`)
	testutil.CheckResponseCode(t, http.StatusConflict, w.Code)

	w = doJSON(router, http.MethodPost, "/auth/register", "",
		`{"username":"dave","email":"dave@example.com","password":"password123","confirm_password":"nope"}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/auth/login", "", `{"username":"carol","password":"wrong-password"}`)
	testutil.CheckResponseCode(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/auth/me", token, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var me map[string]any
	testutil.DecodeJSONBody(t, w.Body, &me)
	if me["username"] != "carol" {
		t.Fatalf("expected username carol, got %v", me["username"])
	}
	if _, ok := me["password_hash"]; ok {
		t.Fatal("password hash must not be serialised")
	}

	w = doJSON(router, http.MethodPost, "/auth/logout", token, "")
	testutil.CheckResponseCode(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/calculations", token, "")
	testutil.CheckResponseCode(t, http.StatusUnauthorized, w.Code)
}

func TestNewRouterReadyEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(router, http.MethodGet, "/ready", "", "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)

	down := NewRouter(Deps{
		Ping: func(context.Context) error { return errors.New("db down") },
	})
	w = doJSON(down, http.MethodGet, "/ready", "", "")
	testutil.CheckResponseCode(t, http.StatusServiceUnavailable, w.Code)
}

func TestCalculationOverflowIsRejectedAndNotStored(t *testing.T) {
	router := newTestRouter(t)
	token := signup(t, router, "erin")

	w := doJSON(router, http.MethodPost, "/calculations", token, `{"type":"addition","inputs":[1e308,1e308]}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)
	var payload handlers.ErrorResponse
	testutil.DecodeJSONBody(t, w.Body, &payload)
	if payload.Code != "bad_request" {
		t.Fatalf("expected code bad_request, got %q", payload.Code)
	}

	w = doJSON(router, http.MethodPost, "/calculations", token, `{"type":"multiplication","inputs":[2,3]}`)
	testutil.CheckResponseCode(t, http.StatusCreated, w.Code)
	var rec calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &rec)

	w = doJSON(router, http.MethodPut, "/calculations/"+rec.ID.String(), token, `{"inputs":[1e308,10]}`)
	testutil.CheckResponseCode(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/calculations", token, "")
	testutil.CheckResponseCode(t, http.StatusOK, w.Code)
	var list []calculation.Response
	testutil.DecodeJSONBody(t, w.Body, &list)
	if len(list) != 1 || list[0].Result != 6 {
		t.Fatalf("unexpected list after rejected overflow: %+v", list)
	}
}
