package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bgpnc/members-api/internal/models"
)

func rbacRouter(claims any) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	router.Use(RequireRoles(models.RoleAdmin))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	recorder := httptest.NewRecorder()
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	recorder := httptest.NewRecorder()
	router := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStaff})
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	recorder := httptest.NewRecorder()
	router := rbacRouter(nil)
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesRejectsWrongClaimsType(t *testing.T) {
	recorder := httptest.NewRecorder()
	router := rbacRouter("not-claims")
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
