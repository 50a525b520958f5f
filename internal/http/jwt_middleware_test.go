package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"voyager-api/internal/domain"
	"voyager-api/internal/service"
)

func setupProtectedRouter(jwtSvc *service.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(jwtSvc), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "claims missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID})
	})
	return r
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	r := setupProtectedRouter(service.NewJWTService("secret", time.Hour))

	rec := performRequest(r, http.MethodGet, "/protected", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareInvalidToken(t *testing.T) {
	r := setupProtectedRouter(service.NewJWTService("secret", time.Hour))

	rec := performRequest(r, http.MethodGet, "/protected", nil, "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareRejectsForeignSecret(t *testing.T) {
	foreign := service.NewJWTService("other-secret", time.Hour)
	token, err := foreign.Generate(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := setupProtectedRouter(service.NewJWTService("secret", time.Hour))
	rec := performRequest(r, http.MethodGet, "/protected", nil, token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewarePassesClaims(t *testing.T) {
	jwtSvc := service.NewJWTService("secret", time.Hour)
	token, err := jwtSvc.Generate(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	r := setupProtectedRouter(jwtSvc)
	rec := performRequest(r, http.MethodGet, "/protected", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
