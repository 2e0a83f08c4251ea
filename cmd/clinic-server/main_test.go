package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic/internal/config"
	"github.com/clinicbook/clinic/internal/domain/identity"
	"github.com/clinicbook/clinic/internal/platform/auth"
	"github.com/clinicbook/clinic/internal/platform/notification"
	"github.com/clinicbook/clinic/internal/platform/payment"
)

const testSecret = "main-test-secret"

// adminOnlyUsers knows a single admin account.
type adminOnlyUsers struct{ admin string }

func (u adminOnlyUsers) Upsert(context.Context, *identity.User) (*identity.UpsertResult, error) {
	return &identity.UpsertResult{}, nil
}
func (u adminOnlyUsers) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	if email == u.admin {
		return &identity.User{ID: "1", Email: email, Role: identity.RoleAdmin}, nil
	}
	return nil, identity.ErrNotFound
}
func (u adminOnlyUsers) List(context.Context) ([]*identity.User, error) { return nil, nil }
func (u adminOnlyUsers) ListByRole(context.Context, identity.Role) ([]*identity.User, error) {
	return nil, nil
}
func (u adminOnlyUsers) SetRole(context.Context, string, identity.Role) (*identity.UpdateResult, error) {
	return &identity.UpdateResult{}, nil
}
func (u adminOnlyUsers) DeleteByID(context.Context, string) (string, int64, error) { return "", 0, nil }
func (u adminOnlyUsers) DeleteByEmail(context.Context, string) (int64, error) { return 0, nil }

func testServerConfig() *config.Config {
	return &config.Config{
		Env:               "development",
		StoreDriver:       config.StorePostgres,
		AccessTokenSecret: testSecret,
		TokenTTL:          time.Hour,
		CORSOrigins:       []string{"*"},
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
		RequestTimeout:    5 * time.Second,
		StoreTimeout:      time.Second,
		PaymentTimeout:    time.Second,
		NotifyTimeout:     time.Second,
		NotifyMaxAttempts: 1,
		PaymentCurrency:   "usd",
	}
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	e, _ := newServer(deps{
		cfg:     testServerConfig(),
		logger:  zerolog.Nop(),
		stores:  &stores{users: adminOnlyUsers{admin: "admin@clinic.test"}},
		sender:  &notification.MockEmailSender{},
		gateway: payment.Unconfigured{},
	})
	return e
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRootCmd_Subcommands(t *testing.T) {
	want := map[string]bool{"serve": false, "migrate": false, "catalog": false, "token": false}
	for _, c := range rootCmd().Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %s", name)
		}
	}
}

func TestServer_Index(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "Hello Doctors & Patients" {
		t.Errorf("unexpected index response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_HealthWithoutChecks(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestServer_UnknownRouteIsJSON(t *testing.T) {
	rec := do(newTestServer(t), http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["message"] == "" {
		t.Error("expected message field")
	}
}

func TestServer_AdminRoutesGated(t *testing.T) {
	h := newTestServer(t)
	issuer := auth.NewIssuer([]byte(testSecret), time.Hour)

	if rec := do(h, http.MethodGet, "/notifications/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no credential: expected 401, got %d", rec.Code)
	}

	patient, _ := issuer.Issue("patient@clinic.test")
	if rec := do(h, http.MethodGet, "/notifications/stats", patient); rec.Code != http.StatusForbidden {
		t.Errorf("patient: expected 403, got %d", rec.Code)
	}

	admin, _ := issuer.Issue("admin@clinic.test")
	rec := do(h, http.MethodGet, "/notifications/stats", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var stats notification.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
}

func TestServer_PaymentIntentUnconfigured(t *testing.T) {
	h := newTestServer(t)
	token, _ := auth.NewIssuer([]byte(testSecret), time.Hour).Issue("patient@clinic.test")

	req := httptest.NewRequest(http.MethodPost, "/create-payment-intent", strings.NewReader(`{"price":50}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 without a payment processor, got %d", rec.Code)
	}
}

func TestReadCatalogFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "services.json")
	os.WriteFile(good, []byte(`[{"name":"Teeth Cleaning","slots":["08.00 AM - 08.30 AM"],"price":50}]`), 0644)
	services, err := readCatalogFile(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(services) != 1 || services[0].Name != "Teeth Cleaning" || services[0].Price != 50 {
		t.Errorf("unexpected services %+v", services[0])
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`[]`), 0644)
	if _, err := readCatalogFile(empty); err == nil {
		t.Error("expected error for empty catalog")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{`), 0644)
	if _, err := readCatalogFile(bad); err == nil {
		t.Error("expected error for malformed json")
	}

	if _, err := readCatalogFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTokenCmd(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("ACCESS_TOKEN_SECRET", testSecret)

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--email", "someone@clinic.test"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token command failed: %v", err)
	}

	claims, err := auth.NewVerifier([]byte(testSecret)).Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Email != "someone@clinic.test" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
}

func TestTokenCmd_RequiresEmail(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without --email")
	}
}
