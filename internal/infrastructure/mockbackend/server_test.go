package mockbackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/digisapp/digis-app-sub003/pkg/config"
)

func newTestServer(t *testing.T, shape string) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MockBackend.JWTSecret = "test-secret"
	cfg.MockBackend.SessionShape = shape

	srv := NewServer(cfg, zaptest.NewLogger(t).Sugar())
	ts := httptest.NewServer(srv.Router(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, token string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, baseURL, role string) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"username": "miriam",
		"email":    "m@example.com",
		"password": "secret",
		"role":     role,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, "current")
	registerUser(t, ts.URL, "creator")

	// Duplicate registration is rejected.
	resp := postJSON(t, ts.URL+"/auth/register", "", map[string]string{
		"username": "other",
		"email":    "m@example.com",
		"password": "x",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"email":    "m@example.com",
		"password": "secret",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/auth/login", "", map[string]string{
		"email":    "m@example.com",
		"password": "wrong",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCurrentShape(t *testing.T) {
	ts := newTestServer(t, "current")
	token := registerUser(t, ts.URL, "creator")

	var body struct {
		Success bool `json:"success"`
		Session struct {
			Role        string   `json:"role"`
			RoleVersion int      `json:"role_version"`
			Permissions []string `json:"permissions"`
			User        struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"session"`
	}
	status := getJSON(t, ts.URL+"/auth/session", token, &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, "creator", body.Session.Role)
	assert.Equal(t, 1, body.Session.RoleVersion)
	assert.Equal(t, []string{"stream:start"}, body.Session.Permissions)
	assert.Equal(t, "miriam", body.Session.User.Username)
}

func TestSessionLegacyShape(t *testing.T) {
	ts := newTestServer(t, "legacy")
	token := registerUser(t, ts.URL, "creator")

	var body struct {
		Session struct {
			User struct {
				ID        string `json:"id"`
				IsCreator bool   `json:"is_creator"`
			} `json:"user"`
		} `json:"session"`
	}
	status := getJSON(t, ts.URL+"/auth/session", token, &body)
	require.Equal(t, http.StatusOK, status)

	assert.NotEmpty(t, body.Session.User.ID)
	assert.True(t, body.Session.User.IsCreator)
}

func TestSessionRequiresAuth(t *testing.T) {
	ts := newTestServer(t, "current")
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, ts.URL+"/auth/session", "", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, ts.URL+"/auth/session", "garbage", nil))
}

func TestUpgradeRoleBumpsVersion(t *testing.T) {
	ts := newTestServer(t, "current")
	token := registerUser(t, ts.URL, "fan")

	resp := postJSON(t, ts.URL+"/auth/upgrade-role", token, map[string]string{"role": "creator"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Role        string `json:"role"`
		RoleVersion int    `json:"role_version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "creator", body.Role)
	assert.Equal(t, 2, body.RoleVersion)

	var sess struct {
		Session struct {
			Role        string `json:"role"`
			RoleVersion int    `json:"role_version"`
		} `json:"session"`
	}
	status := getJSON(t, ts.URL+"/auth/session", token, &sess)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "creator", sess.Session.Role)
	assert.Equal(t, 2, sess.Session.RoleVersion)
}

func TestHealthAndSync(t *testing.T) {
	ts := newTestServer(t, "current")
	token := registerUser(t, ts.URL, "fan")

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/health", "", nil))

	resp := postJSON(t, ts.URL+"/auth/sync-user", token, map[string]string{})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTokenService(t *testing.T) {
	svc := NewTokenService("secret", 0)

	// Zero TTL issues an already-expired token.
	token, err := svc.GenerateToken("u-1", "miriam", "fan")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
