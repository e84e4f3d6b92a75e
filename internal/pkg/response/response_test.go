package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi/proxyutil"
)

func serve(fn gin.HandlerFunc) (*httptest.ResponseRecorder, proxyutil.CommonResponse) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", fn, func(c *gin.Context) {
		c.String(http.StatusOK, "not aborted")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var res proxyutil.CommonResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

func TestErrorCarriesStatusAndCode(t *testing.T) {
	var replyErr error
	w, res := serve(func(c *gin.Context) {
		Error(c, http.StatusConflict, 10000005, "email already registered")
		replyErr = proxyutil.GetReplyErrInfo(c)
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, uint32(10000005), res.Code)
	require.Equal(t, "email already registered", res.Message)
	require.Nil(t, res.Data)
	require.NotContains(t, w.Body.String(), "not aborted")
	require.EqualError(t, replyErr, "email already registered")
}

func TestSuccess(t *testing.T) {
	w, res := serve(func(c *gin.Context) {
		Success(c, gin.H{"sent": true})
		c.Abort()
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, res.Code)
	require.Equal(t, map[string]interface{}{"sent": true}, res.Data)

	w, res = serve(func(c *gin.Context) {
		SuccessWithStatus(c, http.StatusCreated, gin.H{"token": "t"})
		c.Abort()
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Zero(t, res.Code)
	require.Equal(t, map[string]interface{}{"token": "t"}, res.Data)
}

func TestAsCodeErr(t *testing.T) {
	err := AsCodeErr(42, "boom")
	require.EqualError(t, err, "boom")
	var coded interface{ Code() uint32 }
	require.True(t, errors.As(err, &coded))
	require.Equal(t, uint32(42), coded.Code())
}
