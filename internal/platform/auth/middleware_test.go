package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	return c, mw(okHandler)(c)
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != want {
		t.Errorf("expected %d, got %d", want, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	for _, header := range []string{"Token abc123", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz"} {
		t.Run(header, func(t *testing.T) {
			_, err := runMiddleware(t, JWTMiddleware(cfg), header)
			assertStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, time.Hour)
	tok, _, err := issuer.Issue(42, "mcontreras", RoleMatrona)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	c, err := runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: issuer}), "Bearer "+tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := c.Request().Context()
	if got := UserIDFromContext(ctx); got != 42 {
		t.Errorf("expected user 42, got %d", got)
	}
	if got := PrimaryRole(ctx); got != RoleMatrona {
		t.Errorf("expected MATRONA, got %s", got)
	}
	if got := UsernameFromContext(ctx); got != "mcontreras" {
		t.Errorf("expected username mcontreras, got %s", got)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	other := NewTokenIssuer([]byte("another-key-another-key-another!!"), time.Hour)
	tok, _, _ := other.Issue(1, "x", RoleTENS)

	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+tok)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Expired(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, _ := issuer.Issue(1, "x", RoleTENS)

	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Minute)}
	_, err := runMiddleware(t, JWTMiddleware(cfg), "Bearer "+tok)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: Issuer},
		Roles:            []string{RoleAdmin},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	_, err = runMiddleware(t, JWTMiddleware(cfg), "Bearer "+tok)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Revoked(t *testing.T) {
	issuer := NewTokenIssuer(testSigningKey, time.Hour)
	tok, exp, _ := issuer.Issue(7, "x", RoleMedico)
	claims, err := issuer.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	store := NewTokenRevocationStore()
	defer store.Close()
	store.Revoke(claims.ID, exp)

	_, err = runMiddleware(t, JWTMiddleware(JWTConfig{Issuer: issuer, Revoked: store}), "Bearer "+tok)
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	cfg := JWTConfig{
		Issuer:  NewTokenIssuer(testSigningKey, time.Hour),
		Skipper: func(c echo.Context) bool { return true },
	}
	if _, err := runMiddleware(t, JWTMiddleware(cfg), ""); err != nil {
		t.Errorf("expected skipped request to pass, got %v", err)
	}
}

func TestDevAuthMiddleware_DefaultsToAdmin(t *testing.T) {
	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	c, err := runMiddleware(t, DevAuthMiddleware(cfg), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if PrimaryRole(c.Request().Context()) != RoleAdmin {
		t.Errorf("expected ADMIN, got %v", RolesFromContext(c.Request().Context()))
	}
}

func TestDevAuthMiddleware_StillVerifiesTokens(t *testing.T) {
	cfg := JWTConfig{Issuer: NewTokenIssuer(testSigningKey, time.Hour)}
	_, err := runMiddleware(t, DevAuthMiddleware(cfg), "Bearer garbage")
	assertStatus(t, err, http.StatusUnauthorized)
}

func TestContextHelpers_Empty(t *testing.T) {
	ctx := context.Background()
	if UserIDFromContext(ctx) != 0 {
		t.Error("expected zero user id")
	}
	if RolesFromContext(ctx) != nil {
		t.Error("expected nil roles")
	}
	if PrimaryRole(ctx) != "" {
		t.Error("expected empty primary role")
	}
}

func TestRevocationStore_Cleanup(t *testing.T) {
	store := NewTokenRevocationStore()
	defer store.Close()

	store.Revoke("old", time.Now().Add(-time.Minute))
	store.Revoke("fresh", time.Now().Add(time.Hour))
	store.cleanup()

	if store.IsRevoked("old") {
		t.Error("expected expired entry to be removed")
	}
	if !store.IsRevoked("fresh") {
		t.Error("expected unexpired entry to remain")
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Count())
	}
}
