package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/middleware"
	"github.com/xxxsen/accountd/internal/pkg/errcode"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func getToken(c *gin.Context) string {
	return c.GetString(middleware.ContextTokenKey)
}

func invalidRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, message)
}

type errorMapping struct {
	target  error
	status  int
	code    int
	message string
}

var errorMappings = []errorMapping{
	{appErr.ErrUnauthorized, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized"},
	{appErr.ErrNotFound, http.StatusNotFound, errcode.ErrNotFound, "not found"},
	{appErr.ErrInvalidCredentials, http.StatusBadRequest, errcode.ErrInvalidCredentials, "invalid email or password"},
	{appErr.ErrInvalidPassword, http.StatusBadRequest, errcode.ErrInvalidPassword, "current password is incorrect"},
	{appErr.ErrInvalidFile, http.StatusBadRequest, errcode.ErrInvalidFile, "only image files are allowed"},
	{appErr.ErrFileTooLarge, http.StatusBadRequest, errcode.ErrFileTooLarge, "file too large"},
	{appErr.ErrInvalid, http.StatusBadRequest, errcode.ErrInvalid, "invalid request"},
	{appErr.ErrConflict, http.StatusConflict, errcode.ErrConflict, "email already registered"},
}

// handleError turns a service error into the response envelope. Anything not
// listed is logged and reported as a bare internal error.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Error(c, m.status, m.code, m.message)
			return
		}
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
}
