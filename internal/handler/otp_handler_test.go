package handler_test

import (
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/pkg/errcode"
)

var otpCodeRe = regexp.MustCompile(`\b(\d{6})\b`)

func TestOTPFlow(t *testing.T) {
	env := setupRouter(t, 1024)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/send-otp", "", map[string]string{"email": "a@x.io"})
	require.Equal(t, http.StatusOK, resp.Code)
	m := otpCodeRe.FindStringSubmatch(env.sender.last["a@x.io"])
	require.Len(t, m, 2)

	var data struct {
		Verified bool `json:"verified"`
	}
	resp, body := env.do(t, http.MethodPost, "/api/v1/verify-otp", "", map[string]string{"email": "a@x.io", "code": m[1]})
	require.Equal(t, http.StatusOK, resp.Code)
	decode(t, body, &data)
	require.True(t, data.Verified)

	_, body = env.do(t, http.MethodPost, "/api/v1/verify-otp", "", map[string]string{"email": "a@x.io", "code": m[1]})
	decode(t, body, &data)
	require.False(t, data.Verified)
}

func TestOTPValidation(t *testing.T) {
	env := setupRouter(t, 1024)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/send-otp", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/verify-otp", "", map[string]string{"email": "a@x.io"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSendOTPRejectsMalformedEmail(t *testing.T) {
	env := setupRouter(t, 1024)

	for _, email := range []string{"not-an-email", strings.Repeat("a", 251) + "@x.io"} {
		resp, body := env.do(t, http.MethodPost, "/api/v1/send-otp", "", map[string]string{"email": email})
		require.Equal(t, http.StatusBadRequest, resp.Code, email)
		require.Equal(t, errcode.ErrInvalid, body.Code)
		require.Empty(t, env.sender.last)
	}
}
