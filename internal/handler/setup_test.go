package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/accountd/internal/config"
	"github.com/xxxsen/accountd/internal/filestore"
	"github.com/xxxsen/accountd/internal/handler"
	"github.com/xxxsen/accountd/internal/middleware"
	"github.com/xxxsen/accountd/internal/service"
	"github.com/xxxsen/accountd/internal/testutil"
)

type captureSender struct {
	last map[string]string
}

func (s *captureSender) Send(to, subject, body string) error {
	s.last[to] = body
	return nil
}

type testEnv struct {
	router   http.Handler
	sender   *captureSender
	sessions *testutil.MemSessionStore
}

func setupRouter(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()

	users := testutil.NewMemUserRepo()
	sessions := testutil.NewMemSessionStore(time.Hour)
	sender := &captureSender{last: map[string]string{}}

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	authService := service.NewAuthService(users, sessions, []byte("test-secret"), time.Hour, 6)
	accountService := service.NewAccountService(users, store, maxUpload)
	otpService := service.NewOTPService(testutil.NewMemOTPRepo(), sender, 10*time.Minute)

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(authService),
		Profile:       handler.NewProfileHandler(accountService),
		OTP:           handler.NewOTPHandler(otpService),
		Files:         handler.NewFileHandler(accountService, store, maxUpload),
		Authenticator: authService,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return &testEnv{router: engine, sender: sender, sessions: sessions}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(t, req)
}

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload-profile-picture", buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return e.serve(t, req)
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	var env envelope
	if resp.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(resp.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	}
	return resp, env
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Email          string `json:"email"`
		Phone          string `json:"phone"`
		Birthday       string `json:"birthday"`
		ProfilePicture string `json:"profilePicture"`
	} `json:"user"`
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func (e *testEnv) register(t *testing.T, name, email, password string) authData {
	t.Helper()
	resp, env := e.do(t, http.MethodPost, "/api/v1/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var data authData
	decode(t, env, &data)
	require.NotEmpty(t, data.Token)
	return data
}
