package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	"storefront/internal/service"
)

const userContextKey = "auth.user"

var errInvalidBody = domain.NewError(domain.KindValidation, "request body must be valid JSON")

// RequireAuth rejects requests without a valid bearer token and attaches
// the resolved user to the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			h.abort(c, service.ErrUnauthenticated)
			return
		}

		user, err := h.auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			h.abort(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			h.abort(c, service.ErrUnauthenticated)
			return
		}
		if !user.IsAdmin {
			h.abort(c, service.ErrForbidden)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *domain.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, _ := v.(*domain.User)
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, tokenString, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tokenString = strings.TrimSpace(tokenString)
	return tokenString, tokenString != ""
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := h.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if user := CurrentUser(c); user != nil {
			entry = entry.WithField("user_id", user.ID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) gin.H {
	return gin.H{
		"error": domain.PublicMessage(err),
		"code":  domain.KindOf(err),
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	h.writeErrorStatus(c, statusFor(domain.KindOf(err)), err)
}

func (h *Handler) writeErrorStatus(c *gin.Context, status int, err error) {
	c.JSON(status, errorBody(err))
}

func (h *Handler) abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(domain.KindOf(err)), errorBody(err))
}
