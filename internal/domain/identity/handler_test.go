package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/respond"
)

func newTestHandler() (*Handler, *Service) {
	svc := newTestService(newMockUserRepo(), &mockDoctorRegistrar{}, &mockPatientRegistrar{})
	return NewHandler(svc), svc
}

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

const registerBody = `{
	"name": "Jane Doe",
	"email": "jane@example.com",
	"password": "password123",
	"role": "patient",
	"date_of_birth": "1990-04-15",
	"gender": "female"
}`

func TestHandlerRegister_Created(t *testing.T) {
	h, _ := newTestHandler()
	c, rec := postJSON(t, "/api/v1/auth/register", registerBody)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var env respond.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !env.Success {
		t.Error("expected success envelope")
	}

	// Token cookie set for browser clients
	found := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.TokenCookieName && cookie.Value != "" {
			found = true
			if !cookie.HttpOnly {
				t.Error("token cookie must be HTTP-only")
			}
		}
	}
	if !found {
		t.Error("expected token cookie")
	}
}

func TestHandlerRegister_DuplicateConflict(t *testing.T) {
	h, _ := newTestHandler()

	c, _ := postJSON(t, "/api/v1/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("first register: %v", err)
	}

	c, _ = postJSON(t, "/api/v1/auth/register", registerBody)
	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandlerRegister_BadBody(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := postJSON(t, "/api/v1/auth/register", `{"email": 42}`)
	err := h.Register(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandlerLogin_Success(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := postJSON(t, "/api/v1/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	c, rec := postJSON(t, "/api/v1/auth/login", `{"email":"jane@example.com","password":"password123"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandlerLogin_WrongPassword(t *testing.T) {
	h, _ := newTestHandler()
	c, _ := postJSON(t, "/api/v1/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	c, _ = postJSON(t, "/api/v1/auth/login", `{"email":"jane@example.com","password":"nope-wrong"}`)
	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandlerMe(t *testing.T) {
	h, svc := newTestHandler()
	c, _ := postJSON(t, "/api/v1/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	users, _, _ := svc.List(c.Request().Context(), "", 10, 0)
	user := users[0]

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	ctx := auth.ContextWithActor(req.Context(), auth.Actor{ID: user.ID.String(), Role: user.Role, Email: user.Email})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	mc := e.NewContext(req, rec)

	if err := h.Me(mc); err != nil {
		t.Fatalf("me: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "jane@example.com") {
		t.Error("expected user email in response")
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash must never be serialized")
	}
}

func TestHandlerLogout_ClearsCookie(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.TokenCookieName {
			if cookie.Value != "" {
				t.Error("expected cookie value cleared")
			}
			return
		}
	}
	t.Error("expected expired token cookie")
}

func TestHandlerChangePassword_ReissuesToken(t *testing.T) {
	h, svc := newTestHandler()
	c, _ := postJSON(t, "/api/v1/auth/register", registerBody)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	users, _, _ := svc.List(c.Request().Context(), "", 10, 0)
	user := users[0]

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/change-password",
		strings.NewReader(`{"current_password":"password123","new_password":"new-password-456"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := auth.ContextWithActor(req.Context(), auth.Actor{ID: user.ID.String(), Role: user.Role, Email: user.Email})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	if err := h.ChangePassword(e.NewContext(req, rec)); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"token"`) {
		t.Error("expected a fresh token in the response")
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.TokenCookieName && cookie.Value != "" {
			return
		}
	}
	t.Error("expected a fresh token cookie")
}
