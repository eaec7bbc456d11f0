package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/api"
	"github.com/nhatro/rentledger/assist"
	"github.com/nhatro/rentledger/id"
	"github.com/nhatro/rentledger/observability"
	"github.com/nhatro/rentledger/store/memory"
	"github.com/nhatro/rentledger/user"
)

const secret = "test-secret-0123456789"

func init() { gin.SetMode(gin.TestMode) }

type fakeModel struct{ reply string }

func (m fakeModel) GenerateJSON(context.Context, assist.Request) (string, error) {
	return m.reply, nil
}

type fixture struct {
	t       *testing.T
	handler http.Handler
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	e := rentledger.New(memory.New(), rentledger.WithClock(func() time.Time { return today }))
	require.NoError(t, e.Start(ctx))
	require.NoError(t, e.Seed(ctx))
	t.Cleanup(func() { _ = e.Stop() })

	tokens, err := api.NewTokens(secret, time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	opts = append([]api.Option{
		api.WithGatherer(reg),
		api.WithMetricFactory(observability.NewPrometheusFactory(reg)),
	}, opts...)
	return &fixture{t: t, handler: api.New(e, tokens, opts...).Handler(), reg: reg}
}

// envelope is the response shape: {"data": ...} or {"error": ...}.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

func (f *fixture) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(req, token)
}

func (f *fixture) send(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (f *fixture) login(username, password string) string {
	f.t.Helper()
	w, env := f.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": password,
	})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(f.t, json.Unmarshal(env.Data, &session))
	return session.Token
}

type roomJSON struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Pinned  bool   `json:"pinned"`
	History []struct {
		ID     string `json:"id"`
		Paid   bool   `json:"paid"`
		Amount struct {
			Amount int64 `json:"amount"`
		} `json:"amount"`
	} `json:"usage_history"`
}

func (f *fixture) rooms(token string) []roomJSON {
	f.t.Helper()
	w, env := f.do(http.MethodGet, "/api/rooms", token, nil)
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var rooms []roomJSON
	require.NoError(f.t, json.Unmarshal(env.Data, &rooms))
	return rooms
}

func byName(rooms []roomJSON, name string) roomJSON {
	for _, r := range rooms {
		if r.Name == name {
			return r
		}
	}
	return roomJSON{}
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(http.MethodGet, "/api/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_token", env.Error.Code)

	w, _ = f.do(http.MethodGet, "/api/rooms", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", env.Error.Code)

	w, env = f.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "password", env.Error.Field)

	token := f.login("ADMIN", rentledger.DemoPassword)
	w, env = f.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"role":"admin"`)
}

func TestTokens(t *testing.T) {
	f := newFixture(t)
	tokens, err := api.NewTokens(secret, time.Minute)
	require.NoError(t, err)
	p := &user.Principal{UserID: id.NewUserID(), Username: "admin", Name: "Quản trị", Role: user.RoleAdmin}

	other, err := api.NewTokens("another-secret-0123456789", time.Minute)
	require.NoError(t, err)
	forged, _, err := other.Issue(p)
	require.NoError(t, err)
	w, _ := f.do(http.MethodGet, "/api/me", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	valid, exp, err := tokens.Issue(p)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)
	got, err := tokens.Parse(valid)
	require.NoError(t, err)
	assert.Equal(t, p.UserID, got.UserID)
	assert.Equal(t, user.RoleAdmin, got.Role)

	w, _ = f.do(http.MethodGet, "/api/me", valid, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	tenant, _, err := tokens.Issue(&user.Principal{Username: "Phòng 101", Role: user.RoleTenant})
	require.NoError(t, err)
	_, err = tokens.Parse(tenant)
	assert.ErrorIs(t, err, api.ErrInvalidToken)

	_, err = api.NewTokens("short", time.Minute)
	assert.Error(t, err)
}

func TestRoomLifecycle(t *testing.T) {
	f := newFixture(t)
	token := f.login("staff", rentledger.DemoPassword)

	w, env := f.do(http.MethodPost, "/api/rooms", token, map[string]any{"name": "Phòng 103", "base_rent": 1_500_000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created roomJSON
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "vacant", created.Status)

	w, env = f.do(http.MethodPost, "/api/rooms", token, map[string]any{"name": "phòng 103", "base_rent": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "name", env.Error.Field)

	w, _ = f.do(http.MethodPost, "/api/rooms", token, map[string]any{"name": "", "base_rent": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = f.do(http.MethodPost, "/api/rooms", token, "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	base := "/api/rooms/" + created.ID
	w, _ = f.do(http.MethodPost, base+"/pin", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Phòng 103", f.rooms(token)[0].Name)

	w, _ = f.do(http.MethodPut, base+"/tenants", token, map[string]any{
		"tenants": []map[string]string{{"name": "Lê Văn Cường", "phone": "0901234567", "move_in_date": "2024-03-01"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = f.do(http.MethodPut, base+"/tenants", token, map[string]any{
		"tenants": []map[string]string{{"name": "X", "phone": "12"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = f.do(http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "room_occupied", env.Error.Code)

	w, env = f.do(http.MethodPost, base+"/records", token, map[string]any{
		"electric": 20, "water": 3, "start_date": "2024-03-01", "end_date": "2024-03-31",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec struct {
		Record struct {
			ID     string `json:"id"`
			Amount struct {
				Amount int64 `json:"amount"`
			} `json:"amount"`
		} `json:"record"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, int64(1_500_000+20*5_000+3*10_000), rec.Record.Amount.Amount)

	recPath := base + "/records/" + rec.Record.ID
	w, env = f.do(http.MethodPatch, recPath, token, map[string]any{
		"electric": 10, "water": 3, "start_date": "2024-03-01", "end_date": "2024-03-31", "amount": 1_600_000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, int64(1_600_000), rec.Record.Amount.Amount)

	w, _ = f.do(http.MethodPost, base+"/records", token, map[string]any{
		"electric": 5, "water": 3, "start_date": "2024-04-01", "end_date": "2024-04-30",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = f.do(http.MethodPost, base+"/records", token, map[string]any{
		"electric": 30, "start_date": "2024-04-01", "end_date": "2024-04-30",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = f.do(http.MethodPost, recPath+"/paid", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = f.do(http.MethodPost, base+"/checkout", token, map[string]any{
		"electric": 40, "water": 5, "start_date": "2024-04-01", "end_date": "2024-04-15", "final_rent": 750_000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = f.do(http.MethodGet, "/api/archive?room_id="+created.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)

	w, _ = f.do(http.MethodDelete, base, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env = f.do(http.MethodGet, base, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	w, _ = f.do(http.MethodGet, "/api/rooms/room_bogus", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTenantSession(t *testing.T) {
	f := newFixture(t)
	staff := f.login("staff", rentledger.DemoPassword)
	all := f.rooms(staff)
	own := byName(all, "Phòng 101")
	other := byName(all, "Phòng 102")
	require.NotEmpty(t, own.ID)

	token := f.login("phong101", "101")

	rooms := f.rooms(token)
	require.Len(t, rooms, 1)
	assert.Equal(t, own.ID, rooms[0].ID)

	w, _ := f.do(http.MethodGet, "/api/rooms/"+own.ID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := f.do(http.MethodGet, "/api/rooms/"+other.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Code)

	w, _ = f.do(http.MethodPost, "/api/rooms/"+own.ID+"/records/"+own.History[1].ID+"/paid", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(http.MethodGet, "/api/notifications", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(http.MethodPut, "/api/me", token, map[string]string{"username": "x", "name": "y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = f.do(http.MethodGet, "/api/invoices?room_id="+other.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int `json:"total"`
		Items []struct {
			RoomID string `json:"room_id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	for _, it := range page.Items {
		assert.Equal(t, own.ID, it.RoomID)
	}

	w, _ = f.do(http.MethodGet, "/api/rooms/"+own.ID+"/records/"+own.History[1].ID+"/invoice?format=html", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "PHIẾU BÁO TIỀN NHÀ")
}

func TestInvoicesAndExport(t *testing.T) {
	f := newFixture(t)
	token := f.login("admin", rentledger.DemoPassword)
	own := byName(f.rooms(token), "Phòng 101")
	require.Len(t, own.History, 2)

	w, env := f.do(http.MethodGet, "/api/invoices?status=unpaid", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 1, page.Total)

	w, _ = f.do(http.MethodGet, "/api/invoices?status=overdue", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = f.do(http.MethodGet, "/api/rooms/"+own.ID+"/records/"+own.History[1].ID+"/invoice", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inv struct {
		Total struct {
			Amount int64 `json:"amount"`
		} `json:"total"`
		PaymentRef string `json:"payment_ref"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, int64(2_300_000), inv.Total.Amount)
	assert.NotEmpty(t, inv.PaymentRef)

	w, _ = f.do(http.MethodGet, "/api/rooms/"+own.ID+"/export.xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Hoa_Don_")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w, env = f.do(http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.Len(t, notes, 1)
}

func TestUsers(t *testing.T) {
	f := newFixture(t)
	staff := f.login("staff", rentledger.DemoPassword)
	w, _ := f.do(http.MethodGet, "/api/users", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := f.login("admin", rentledger.DemoPassword)
	w, env := f.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "ketoan", "name": "Kế toán", "role": "staff", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password")
	var u struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &u))

	w, _ = f.do(http.MethodPost, "/api/users", admin, map[string]string{
		"username": "KeToan", "name": "Dup", "role": "staff", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = f.do(http.MethodPatch, "/api/users/"+u.ID, admin, map[string]string{"role": "admin"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = f.do(http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password_hash")
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 3)

	w, _ = f.do(http.MethodDelete, "/api/users/"+u.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = f.do(http.MethodPut, "/api/me", admin, map[string]string{
		"username": "boss", "name": "Chủ nhà", "new_password": "newpass1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	f.login("boss", "newpass1")
}

func TestAssist(t *testing.T) {
	f := newFixture(t)
	token := f.login("staff", rentledger.DemoPassword)

	w, env := f.do(http.MethodPost, "/api/assist/readings/speech", token, map[string]string{"transcript": "điện 150 nước 15"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "assistant_unavailable", env.Error.Code)

	f = newFixture(t, api.WithAssistant(assist.New(fakeModel{reply: `{"electric": 150, "water": null}`})))
	token = f.login("staff", rentledger.DemoPassword)

	w, env = f.do(http.MethodPost, "/api/assist/readings/speech", token, map[string]string{"transcript": "điện 150"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"electric": 150, "water": null, "missing": ["water"]}`, string(env.Data))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("photo", "note.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("not an image"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/assist/readings/photo", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env = f.send(req, token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "bad_image", env.Error.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	f.login("admin", rentledger.DemoPassword)

	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rentledger_http_requests_total")
}
