package middleware

import (
	"net/http"
	"strings"

	"github.com/upscwallahhacker-cell/Desikart/internal/auth"
	"github.com/upscwallahhacker-cell/Desikart/internal/dto"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"
	"github.com/upscwallahhacker-cell/Desikart/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys for user info
const (
	CtxUserID   = "user_id"
	CtxUserRole = "user_role"
)

// AuthRequired проверяет Bearer-токен и кладёт uid и роль в контекст запроса.
func AuthRequired(provider auth.Provider, sessions *session.Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		token, ok := ExtractBearerToken(authz)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}

		uid, err := provider.Introspect(c.Request.Context(), token)
		if err != nil {
			log.Warn("introspect failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		role := models.RoleUser
		if profile, perr := sessions.ProfileByUID(c.Request.Context(), uid); perr == nil {
			role = profile.Role
		}

		c.Set(CtxUserID, uid)
		c.Set(CtxUserRole, string(role))
		c.Next()
	}
}

// AdminRequired пускает дальше только роль ADMIN. Вешается после AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserRole) != string(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("admin access required"))
			return
		}
		c.Next()
	}
}

// ExtractBearerToken извлекает токен из заголовка Authorization, устойчиво
// к кавычкам и лишнему мусору после запятой.
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
