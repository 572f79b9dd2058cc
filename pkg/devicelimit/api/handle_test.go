package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/devicelimit/pkg/account"
	"github.com/tendant/devicelimit/pkg/csrf"
	"github.com/tendant/devicelimit/pkg/device"
	"github.com/tendant/devicelimit/pkg/devicelimit"
	"github.com/tendant/devicelimit/pkg/deviceid"
	"github.com/tendant/devicelimit/pkg/notification"
	"github.com/tendant/devicelimit/pkg/otp"
	"github.com/tendant/devicelimit/pkg/policy"
)

type fakeHost struct {
	accountID string
	admin     bool
	tokens    *csrf.Tokens
	signedIn  []string
}

func (h *fakeHost) AccountID(r *http.Request) string      { return h.accountID }
func (h *fakeHost) CanManageDevices(r *http.Request) bool { return h.admin }

func (h *fakeHost) SignIn(w http.ResponseWriter, r *http.Request, acct account.Account) error {
	h.signedIn = append(h.signedIn, acct.ID)
	return nil
}

func (h *fakeHost) IssueToken(action, subject string) (string, error) {
	return h.tokens.Issue(action, subject)
}

func (h *fakeHost) VerifyToken(raw, action, subject string) error {
	return h.tokens.Verify(raw, action, subject)
}

type apiFixture struct {
	host     *fakeHost
	store    *account.InMemStore
	registry *device.Registry
	engine   *devicelimit.Engine
	router   http.Handler
	alice    account.Account
	root     account.Account
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	f := &apiFixture{
		host:  &fakeHost{tokens: csrf.NewTokens("test-secret-0123456789", time.Hour)},
		store: account.NewInMemStore(),
	}
	f.registry = device.NewRegistry(f.store)
	challenges := otp.NewManager(f.store, otp.WithCodeGenerator(func() (string, error) {
		return "123456", nil
	}))
	f.engine = devicelimit.NewEngine(f.registry, challenges, &notification.MockMailer{})

	h := NewHandle(f.host,
		devicelimit.NewVerifier(f.store, f.registry, challenges),
		devicelimit.NewAdmin(f.store, f.registry, challenges),
		f.registry,
		policy.NewService(f.store, 3),
	)
	f.router = Handler(h)

	var err error
	f.alice, err = f.store.CreateAccount(ctx, account.Account{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	f.root, err = f.store.CreateAccount(ctx, account.Account{Username: "root", Email: "root@example.com", Admin: true})
	require.NoError(t, err)
	return f
}

func (f *apiFixture) signInAs(acct account.Account) {
	f.host.accountID = acct.ID
	f.host.admin = acct.Admin
}

func (f *apiFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) approve(t *testing.T, accountID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.registry.Approve(context.Background(), accountID, device.Record{ID: id}))
	}
}

func (f *apiFixture) token(t *testing.T, action, subject string) string {
	t.Helper()
	token, err := f.host.tokens.Issue(action, subject)
	require.NoError(t, err)
	return token
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func postVerify(code, username, token string) *http.Request {
	form := url.Values{"log": {username}, "code": {code}, "csrf_token": {token}}
	req := httptest.NewRequest(http.MethodPost, "/verify-device", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGetVerify(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("unknown user renders nothing", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/verify-device?log=nobody", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing username renders nothing", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/verify-device", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("known user gets the form", func(t *testing.T) {
		rec := f.do(t, httptest.NewRequest(http.MethodGet, "/verify-device?log=alice", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alice", resp.Username)
		assert.NoError(t, f.host.tokens.Verify(resp.CSRFToken, csrf.ActionVerifyDevice, f.alice.ID))
	})

	t.Run("approved and signed in goes to landing", func(t *testing.T) {
		f.approve(t, f.alice.ID, "dev-1")
		f.signInAs(f.alice)
		defer f.signInAs(account.Account{})

		req := httptest.NewRequest(http.MethodGet, "/verify-device?log=alice", nil)
		req.AddCookie(&http.Cookie{Name: deviceid.DefaultCookieName, Value: "dev-1"})
		rec := f.do(t, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, DefaultLandingURL, rec.Header().Get("Location"))
	})
}

func TestPostVerify(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	outcome, err := f.engine.Enforce(ctx, devicelimit.LoginAttempt{
		Account: f.alice,
		Client:  deviceid.ClientInfo{DeviceID: "dev-new", Agent: "Mozilla/5.0", IPAddress: "192.0.2.7", Class: device.ClassDesktop},
	})
	require.NoError(t, err)
	require.Equal(t, devicelimit.Redirect, outcome.Kind)

	token := f.token(t, csrf.ActionVerifyDevice, f.alice.ID)

	t.Run("bad token is forbidden", func(t *testing.T) {
		rec := f.do(t, postVerify("123456", "alice", "forged"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, f.host.signedIn)
	})

	t.Run("wrong code asks again", func(t *testing.T) {
		rec := f.do(t, postVerify("000000", "alice", token))
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		var resp VerifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, devicelimit.InvalidCodeMessage, resp.Message)
		assert.NotEmpty(t, resp.CSRFToken)
	})

	t.Run("right code approves and signs in", func(t *testing.T) {
		rec := f.do(t, postVerify(" 123456 ", "alice", token))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, DefaultLandingURL, rec.Header().Get("Location"))
		assert.Equal(t, []string{f.alice.ID}, f.host.signedIn)

		known, err := f.registry.Contains(ctx, f.alice.ID, "dev-new")
		require.NoError(t, err)
		assert.True(t, known)
	})

	t.Run("code cannot be reused", func(t *testing.T) {
		rec := f.do(t, postVerify("123456", "alice", token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user renders nothing", func(t *testing.T) {
		rec := f.do(t, postVerify("123456", "nobody", token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestDeleteDevice(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	del := func(body DeleteDeviceRequest) (*httptest.ResponseRecorder, ActionResponse) {
		rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/admin/devices/delete", jsonBody(t, body)))
		var resp ActionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return rec, resp
	}

	t.Run("signed out", func(t *testing.T) {
		rec, resp := del(DeleteDeviceRequest{AccountID: f.alice.ID, DeviceID: "dev-1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("non-admin with valid token", func(t *testing.T) {
		f.approve(t, f.alice.ID, "dev-1")
		f.signInAs(f.alice)
		rec, _ := del(DeleteDeviceRequest{
			AccountID: f.alice.ID,
			DeviceID:  "dev-1",
			CSRFToken: f.token(t, csrf.ActionDeleteDevice, f.alice.ID),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		known, err := f.registry.Contains(ctx, f.alice.ID, "dev-1")
		require.NoError(t, err)
		assert.True(t, known)
	})

	f.signInAs(f.root)
	valid := f.token(t, csrf.ActionDeleteDevice, f.root.ID)

	t.Run("admin with token for another action", func(t *testing.T) {
		rec, _ := del(DeleteDeviceRequest{
			AccountID: f.alice.ID,
			DeviceID:  "dev-1",
			CSRFToken: f.token(t, csrf.ActionResetDevices, f.root.ID),
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing data", func(t *testing.T) {
		rec, resp := del(DeleteDeviceRequest{AccountID: f.alice.ID, CSRFToken: valid})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, devicelimit.MsgMissingData, resp.Message)
	})

	t.Run("account without devices", func(t *testing.T) {
		rec, resp := del(DeleteDeviceRequest{AccountID: f.root.ID, DeviceID: "dev-1", CSRFToken: valid})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, devicelimit.MsgNoDevices, resp.Message)
	})

	t.Run("removes the device", func(t *testing.T) {
		rec, resp := del(DeleteDeviceRequest{AccountID: f.alice.ID, DeviceID: "dev-1", CSRFToken: valid})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Success)
		assert.Equal(t, devicelimit.MsgDeviceDeleted, resp.Message)

		records, err := f.registry.List(ctx, f.alice.ID)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestListAccountDevices(t *testing.T) {
	f := newAPIFixture(t)
	f.approve(t, f.alice.ID, "dev-1", "dev-2")

	req := func(accountID string) *httptest.ResponseRecorder {
		return f.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/accounts/"+accountID+"/devices", nil))
	}

	f.signInAs(f.alice)
	assert.Equal(t, http.StatusForbidden, req(f.alice.ID).Code)

	f.signInAs(f.root)
	rec := req(f.alice.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListDevicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.alice.ID, resp.AccountID)
	require.Len(t, resp.Devices, 2)
	assert.Equal(t, "dev-1", resp.Devices[0].ID)
	assert.Equal(t, string(device.StatusApproved), resp.Devices[0].Status)
	assert.NoError(t, f.host.tokens.Verify(resp.DeleteToken, csrf.ActionDeleteDevice, f.root.ID))
	assert.NoError(t, f.host.tokens.Verify(resp.ResetToken, csrf.ActionResetDevices, f.root.ID))

	assert.Equal(t, http.StatusNotFound, req("missing").Code)
}

func TestResetDevices(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	f.approve(t, f.alice.ID, "dev-1")
	f.signInAs(f.root)

	path := "/api/admin/accounts/" + f.alice.ID + "/reset"
	rec := f.do(t, httptest.NewRequest(http.MethodPost, path, jsonBody(t, ResetDevicesRequest{CSRFToken: "bad"})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := ResetDevicesRequest{CSRFToken: f.token(t, csrf.ActionResetDevices, f.root.ID)}
	rec = f.do(t, httptest.NewRequest(http.MethodPost, path, jsonBody(t, body)))
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := f.registry.List(ctx, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeviceLimitSettings(t *testing.T) {
	f := newAPIFixture(t)
	f.signInAs(f.root)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/settings/device-limit", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var current DeviceLimitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, policy.DefaultDeviceLimit, current.DeviceLimit)

	put := func(limit int, token string) *httptest.ResponseRecorder {
		body := DeviceLimitRequest{DeviceLimit: limit, CSRFToken: token}
		return f.do(t, httptest.NewRequest(http.MethodPut, "/api/admin/settings/device-limit", jsonBody(t, body)))
	}

	assert.Equal(t, http.StatusForbidden, put(5, "bad").Code)
	assert.Equal(t, http.StatusBadRequest, put(0, current.CSRFToken).Code)

	rec = put(5, current.CSRFToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated DeviceLimitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 5, updated.DeviceLimit)

	f.signInAs(f.alice)
	assert.Equal(t, http.StatusForbidden, put(2, f.token(t, csrf.ActionSetLimit, f.alice.ID)).Code)
}

func TestListMyDevices(t *testing.T) {
	f := newAPIFixture(t)
	f.approve(t, f.alice.ID, "dev-1")

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/me/devices", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.signInAs(f.alice)
	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/me/devices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListDevicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "dev-1", resp.Devices[0].ID)
	assert.Empty(t, resp.DeleteToken)
}
