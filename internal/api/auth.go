// auth.go: bearer token authentication middleware and login handlers.
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/security"
)

// sessionContextKey is where the authenticated session is stored on the
// request context.
const sessionContextKey = "session"

// bearerToken extracts the token from the Authorization header, falling back
// to the token query parameter for EventSource clients that cannot set
// headers.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.QueryParam("token")
}

// requireAuth rejects requests without a valid session token.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		session, ok := s.Security.Lookup(token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(sessionContextKey, session)
		return next(c)
	}
}

// requireAdmin rejects authenticated requests from non-admin users.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return s.requireAuth(func(c echo.Context) error {
		session := currentSession(c)
		if session.Role != datastore.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	})
}

// currentSession returns the session stored by requireAuth.
func currentSession(c echo.Context) security.Session {
	session, _ := c.Get(sessionContextKey).(security.Session)
	return session
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin exchanges credentials for a bearer token session.
// API: POST /api/auth/login
func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := s.DS.GetUserByEmail(req.Email)
	if err != nil || !s.Security.VerifyPassword(user.PasswordHash, req.Password) {
		// same response for unknown user and wrong password
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	session := s.Security.CreateSession(&user)
	return c.JSON(http.StatusOK, session)
}

// handleLogout revokes the current session token.
// API: POST /api/auth/logout
func (s *Server) handleLogout(c echo.Context) error {
	s.Security.Revoke(bearerToken(c))
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}
