package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/pkg/errcode"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextTokenKey  = "token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// JWTAuth requires a live bearer token and puts the caller's user id and raw
// token on the context.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		token := strings.TrimSpace(parts[1])
		userID, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, appErr.ErrUnauthorized) {
				response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "invalid token")
				return
			}
			logutil.GetLogger(c.Request.Context()).Error("authenticate token failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}
