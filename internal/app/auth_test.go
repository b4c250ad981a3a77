package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Seeyko/tomandrieu.com-sub000/internal/config"
)

func authTestRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuthMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func doAuthRequest(t *testing.T, r *gin.Engine, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminAuth_MissingHeader(t *testing.T) {
	r := authTestRouter(&config.Config{StaticTokens: "secret-token"})
	if code := doAuthRequest(t, r, ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAdminAuth_BadFormat(t *testing.T) {
	r := authTestRouter(&config.Config{StaticTokens: "secret-token"})
	if code := doAuthRequest(t, r, "Basic secret-token"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestAdminAuth_StaticToken(t *testing.T) {
	r := authTestRouter(&config.Config{StaticTokens: "tok-a, tok-b"})
	if code := doAuthRequest(t, r, "Bearer tok-b"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := doAuthRequest(t, r, "Bearer tok-c"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", code)
	}
}

func TestAdminAuth_JWT(t *testing.T) {
	secret := "hmac-secret"
	r := authTestRouter(&config.Config{JWTSecret: secret})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	if code := doAuthRequest(t, r, "Bearer "+signed); code != http.StatusOK {
		t.Fatalf("expected 200 for valid JWT, got %d", code)
	}

	wrong, err := token.SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if code := doAuthRequest(t, r, "Bearer "+wrong); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for badly signed JWT, got %d", code)
	}
}
