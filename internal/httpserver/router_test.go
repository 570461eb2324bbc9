package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitweb/config"
	"habitweb/internal/handler"
	"habitweb/internal/live"
	"habitweb/internal/repository/memory"
	"habitweb/internal/service/auth"
	"habitweb/internal/service/tracker"
	"habitweb/internal/userstore"
	"habitweb/internal/util"
	"habitweb/pkg/rbac"
)

type fakeTokens map[string]*util.Claims

func (f fakeTokens) Authenticate(token string) (*util.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeConnector bool

func (f fakeConnector) IsConnected() bool { return bool(f) }

var tokens = fakeTokens{
	"user-token": {UserID: 1, Email: "a@example.com", Role: rbac.RoleUser},
	"demo-token": {UserID: 2, Email: "demo@example.com", Role: rbac.RoleDemo},
}

func newTestRouter(t *testing.T, probes Probes) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	cfg := config.Default().UI
	tr := tracker.NewService(store.Habits(), store.Lists(), store.Records(), zap.NewNop())
	storage := userstore.NewMemory()
	authService := auth.NewService(store.Users(), "secret", time.Hour, rbac.RoleUser, util.NewDeduper(nil, time.Second), zap.NewNop())

	h := Handlers{
		Auth:  handler.NewAuthHandler(authService, cfg, zap.NewNop()),
		Pages: handler.NewPageHandler(tr, storage, cfg, zap.NewNop()),
		Live:  handler.NewLiveHandler(tr, storage, live.NewHub(), cfg, zap.NewNop()),
	}
	r, err := NewRouter(h, tokens, cfg.MountPath, probes, zap.NewNop())
	require.NoError(t, err)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withToken(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: util.SessionCookie, Value: token})
	return req
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, Probes{})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	w = serve(r, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		probes Probes
		code   int
		status string
	}{
		{"no probes", Probes{}, 200, "ready"},
		{"all up", Probes{DB: fakePinger{}, MQ: fakeConnector(true)}, 200, "ready"},
		{"db down", Probes{DB: fakePinger{err: errors.New("refused")}}, 500, "db_not_ready"},
		{"mq down", Probes{MQ: fakeConnector(false)}, 500, "mq_not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.probes)
			w := serve(r, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.status)
		})
	}
}

func TestAuthRedirectsPagesAndRejectsTheRest(t *testing.T) {
	r := newTestRouter(t, Probes{})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/gui", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	ws := httptest.NewRequest(http.MethodGet, "/gui/ws", nil)
	ws.Header.Set("Upgrade", "websocket")
	w = serve(r, ws)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/gui/order", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, withToken(httptest.NewRequest(http.MethodGet, "/gui", nil), "forged"))
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestSignedInPages(t *testing.T) {
	r := newTestRouter(t, Probes{})

	for _, path := range []string{"/gui", "/gui/", "/gui/add", "/gui/order", "/gui/lists", "/gui/import"} {
		w := serve(r, withToken(httptest.NewRequest(http.MethodGet, path, nil), "user-token"))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/gui/export", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestDemoCannotImport(t *testing.T) {
	r := newTestRouter(t, Probes{})

	w := serve(r, withToken(httptest.NewRequest(http.MethodGet, "/gui/import", nil), "demo-token"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(r, withToken(httptest.NewRequest(http.MethodGet, "/gui/export", nil), "demo-token"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicPagesAndStatics(t *testing.T) {
	r := newTestRouter(t, Probes{})

	for _, path := range []string{"/login", "/register", "/metrics"} {
		w := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
