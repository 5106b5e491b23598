package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palacemc/palace-web/internal/api"
	"github.com/palacemc/palace-web/internal/factory"
	"github.com/palacemc/palace-web/internal/services/auth"
	"github.com/palacemc/palace-web/internal/testutil"
)

const (
	caller   = "192.0.2.1:1234"
	stranger = "203.0.113.9:5555"
	secret   = "exchange-secret"
	steve    = "8667ba71-b85a-4004-af54-457a9734eed7"
	alex     = "853c80ef-3c37-49fd-aa49-938b674adae6"
)

// testServer creates a test server with all dependencies
type testServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	registryCfg := auth.DefaultConfig()
	registryCfg.Callers = []string{"192.0.2.1"}
	registryCfg.Secret = secret
	registryCfg.RateBudget = 3

	app, err := factory.NewTestApp(factory.Config{RegistryConfig: registryCfg})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Version:     "test",
		Metrics:     app.Metrics,
		Storage:     app.Storage,
		Registry:    app.Registry,
		Players:     app.Players,
		Connections: app.Connections,
		Wallets:     app.Wallets,
		Stats:       app.Stats,
		Chat:        app.Chat,
		Mail:        app.Mail,
		Moderation:  app.Moderation,
		Discord:     app.Discord,
	})

	return &testServer{t: t, handler: router, app: app}
}

func (ts *testServer) raw(method, path, remote string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = remote
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) request(method, path, remote string, body map[string]any) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(ts.t, err)
	}
	return ts.raw(method, path, remote, data, nil)
}

// token runs the exchange and returns the issued token
func (ts *testServer) token() string {
	ts.t.Helper()
	rr := ts.request(http.MethodPost, "/api/token", caller, map[string]any{"exchange": secret})
	require.Equal(ts.t, http.StatusOK, rr.Code)

	var tok auth.Token
	require.NoError(ts.t, json.Unmarshal(rr.Body.Bytes(), &tok))
	require.NotEmpty(ts.t, tok.Token)
	return tok.Token
}

// internal calls a token protected route as the allow-listed caller
func (ts *testServer) internal(path, token string, body map[string]any) map[string]any {
	ts.t.Helper()
	if body == nil {
		body = map[string]any{}
	}
	body["token"] = token
	rr := ts.request(http.MethodPost, path, caller, body)
	require.Equal(ts.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode(ts.t, rr)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	dec := json.NewDecoder(rr.Body)
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/health", stranger, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr := ts.request(method, "/api", stranger, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"version":"test"}`, rr.Body.String())
	}
}

func TestUnknownEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/player/teleport", caller, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":1,"message":"Endpoint [ /player/teleport ] does not exist"}`, rr.Body.String())
}

func TestWrongMethod(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/chat"},
		{http.MethodGet, "/api/player/wallet"},
		{http.MethodGet, "/api/discord/webhooks/remove"},
		{http.MethodPut, "/api/token"},
		{http.MethodPost, "/api/playersFromName/Steve"},
		{http.MethodDelete, "/api/player/ignoreList/8667ba71-b85a-4004-af54-457a9734eed7"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := ts.request(tt.method, tt.path, caller, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.JSONEq(t, `{"error":1,"message":"Method Not Allowed"}`, rr.Body.String())
		})
	}
}

func TestUnknownEndpointUnderKnownPrefix(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/player/wallet/history", caller, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":1,"message":"Endpoint [ /player/wallet/history ] does not exist"}`, rr.Body.String())
}

func TestEnvelope(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    []byte
		status  int
		message string
	}{
		{"array", []byte(`[1,2]`), http.StatusBadRequest, "API only accepts object payloads"},
		{"string", []byte(`"token"`), http.StatusBadRequest, "API only accepts object payloads"},
		{"truncated", []byte(`{"exchange":`), http.StatusBadRequest, "Payload syntax error"},
		{"trailing", []byte(`{} {}`), http.StatusBadRequest, "Payload syntax error"},
		{"too large", []byte(`{"pad":"` + strings.Repeat("x", 11<<10) + `"}`), http.StatusRequestEntityTooLarge, "Payload Too Large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.raw(http.MethodPost, "/api/token", caller, tt.body, nil)
			assert.Equal(t, tt.status, rr.Code)
			body := decode(t, rr)
			assert.Equal(t, json.Number("1"), body["error"])
			assert.True(t, strings.HasPrefix(body["message"].(string), tt.message), body["message"])
		})
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	// no token
	rr := ts.request(http.MethodPost, "/api/player/login", caller, map[string]any{"uuid": steve, "name": "Steve"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":1,"message":"Unauthorized"}`, rr.Body.String())

	// wrong token
	rr = ts.request(http.MethodPost, "/api/player/login", caller, map[string]any{"token": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// right token, wrong caller
	rr = ts.request(http.MethodPost, "/api/player/login", stranger, map[string]any{"token": token})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	body := []byte(`{"uuid":"` + steve + `","name":"Steve"}`)
	rr := ts.raw(http.MethodPost, "/api/player/login", caller, body, http.Header{"Authorization": {"Bearer " + token}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["new"])
}

func TestTokenExpired(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	ts.app.MockClock.Advance(61 * time.Second)
	rr := ts.request(http.MethodPost, "/api/playerCount", caller, map[string]any{"token": token})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":1,"message":"Token Expired"}`, rr.Body.String())
}

func TestTokenRefresh(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	// too early clears the token
	rr := ts.request(http.MethodPost, "/api/token", caller, map[string]any{"refresh": token})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token = ts.token()
	ts.app.MockClock.Advance(45 * time.Second)
	rr = ts.request(http.MethodPost, "/api/token", caller, map[string]any{"refresh": token})
	require.Equal(t, http.StatusOK, rr.Code)

	next := decode(t, rr)["token"].(string)
	assert.NotEqual(t, token, next)
	ts.internal("/api/playerCount", next, nil)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t)

	for range 3 {
		rr := ts.request(http.MethodGet, "/api/playerFromUUID/"+steve, stranger, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := ts.request(http.MethodGet, "/api/playerFromUUID/"+steve, stranger, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":1,"message":"You have exceeded the allowed requests, please wait"}`, rr.Body.String())

	// allow-listed callers are never limited
	for range 5 {
		rr := ts.request(http.MethodGet, "/api/playerFromUUID/"+steve, caller, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestPublicPlayerLookups(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	rr := ts.request(http.MethodGet, "/api/playerFromUUID/"+steve, caller, nil)
	assert.JSONEq(t, `{}`, rr.Body.String())

	ts.internal("/api/player/login", token, map[string]any{"uuid": steve, "name": "Steve"})

	rr = ts.request(http.MethodGet, "/api/playerFromUUID/"+steve, caller, nil)
	body := decode(t, rr)
	assert.Equal(t, steve, body["uuid"])
	assert.Equal(t, "Steve", body["name"])
	assert.Equal(t, map[string]any{}, body["nameStyle"])

	rr = ts.request(http.MethodGet, "/api/playersFromName/Steve", caller, nil)
	body = decode(t, rr)
	assert.Equal(t, json.Number("1"), body["count"])

	rr = ts.request(http.MethodGet, "/api/player/ignoreList/"+steve, caller, nil)
	assert.JSONEq(t, `{"count":0,"ignored":[]}`, rr.Body.String())
}

func TestValidationMessages(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	tests := []struct {
		name    string
		path    string
		body    map[string]any
		message string
	}{
		{"missing uuid", "/api/player/login", map[string]any{"name": "Steve"}, "String 'uuid' is required"},
		{"uuid not a string", "/api/player/login", map[string]any{"uuid": 5, "name": "Steve"}, "Key 'uuid' must be a non-empty string"},
		{"bad username", "/api/player/login", map[string]any{"uuid": steve, "name": "a b"}, "Key 'name' is not a valid Minecraft username"},
		{"connection type first", "/api/player/connection/get", map[string]any{"pair": "content"}, "String 'type' is required"},
		{"zero delta", "/api/player/wallet", map[string]any{"uuid": steve, "wallets": []string{"primary"}, "delta": 0}, "Key 'delta' cannot be zero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := ts.internal(tt.path, token, tt.body)
			assert.Equal(t, json.Number("1"), body["error"])
			assert.Equal(t, tt.message, body["message"])
		})
	}
}

func TestWalletRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()
	ts.internal("/api/player/login", token, map[string]any{"uuid": steve, "name": "Steve"})

	body := ts.internal("/api/player/wallet", token, map[string]any{"uuid": steve, "wallets": []string{"primary", "survival"}, "delta": 25})
	assert.Equal(t, map[string]any{"primary": json.Number("25"), "survival": json.Number("25")}, body["wallets"])

	// overspending one wallet aborts both by default
	body = ts.internal("/api/player/wallet", token, map[string]any{"uuid": steve, "wallets": []string{"primary", "survival"}, "delta": -30})
	assert.Equal(t, map[string]any{"primary": json.Number("25"), "survival": json.Number("25")}, body["wallets"])
	assert.Equal(t, map[string]any{"primary": false, "survival": false}, body["modified"])

	body = ts.internal("/api/player/wallet/get", token, map[string]any{"uuid": steve, "wallet": []string{"primary"}})
	assert.Equal(t, map[string]any{"primary": json.Number("25")}, body["wallets"])
}

func TestConnectionExpireKeepsPrecision(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()
	ts.internal("/api/player/login", token, map[string]any{"uuid": steve, "name": "Steve"})

	rr := ts.raw(http.MethodPost, "/api/player/connection", caller,
		[]byte(`{"token":"`+token+`","type":"discord","pair":"content","uuid":"`+steve+`","value":"80351110224678912","expire":31556889864403199}`), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"value":"80351110224678912","ttl":31556889864403199}`, rr.Body.String())

	body := ts.internal("/api/player/connection/find", token, map[string]any{"type": "discord", "content": "80351110224678912"})
	assert.Equal(t, "Steve", body["name"])

	body = ts.internal("/api/player/connection/find", token, map[string]any{"type": "discord", "content": "1"})
	assert.Empty(t, body)
}

func TestMailFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()

	ts.internal("/api/mail", token, map[string]any{"to": alex, "from": steve, "origin": "survival", "message": "hi"})

	body := ts.internal("/api/mail/to", token, map[string]any{"uuid": alex})
	assert.Equal(t, json.Number("1"), body["total"])
	assert.Equal(t, json.Number("1"), body["unread"])

	mail := body["mail"].([]any)
	require.Len(t, mail, 1)
	id := mail[0].(map[string]any)["id"].(string)

	assert.Equal(t, map[string]any{"success": json.Number("1")}, ts.internal("/api/mail/read", token, map[string]any{"uuid": alex, "id": id}))

	body = ts.internal("/api/mail/to", token, map[string]any{"uuid": alex})
	assert.Equal(t, json.Number("0"), body["unread"])

	// only the recipient may touch a mail
	body = ts.internal("/api/mail/delete", token, map[string]any{"uuid": steve, "id": id})
	assert.Equal(t, "Not found", body["message"])
}

func TestMuteQuery(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token()
	ts.internal("/api/player/login", token, map[string]any{"uuid": steve, "name": "Steve"})

	body := ts.internal("/api/moderation/mute", token, map[string]any{"uuid": steve, "time": "?"})
	assert.Equal(t, map[string]any{"time": nil}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodGet, "/api", caller, nil)

	rr := ts.request(http.MethodGet, "/metrics", caller, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "palace_http_requests_total")
}
