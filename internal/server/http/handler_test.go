package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUsers knows one user, alice, whose token is "good".
type fakeUsers struct {
	signupErr error
	loginErr  error
	lookupErr error

	gotSignup []string
	gotLogin  []string
}

var alice = &models.User{UserName: "alice", Email: "a@x.com", PasswordHash: "$2a$secret"}

func (f *fakeUsers) Signup(ctx context.Context, username, email, password string) (string, error) {
	f.gotSignup = []string{username, email, password}
	if f.signupErr != nil {
		return "", f.signupErr
	}
	return "tok-" + username, nil
}

func (f *fakeUsers) Login(ctx context.Context, usernameOrEmail, password string) (string, error) {
	f.gotLogin = []string{usernameOrEmail, password}
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "tok-login", nil
}

func (f *fakeUsers) ResolveIdentity(ctx context.Context, token string) (*models.User, error) {
	if token == "good" {
		return alice, nil
	}
	return nil, common.ErrorUnauthorized
}

func (f *fakeUsers) LookupPublic(ctx context.Context, username string) (models.PublicUser, error) {
	if f.lookupErr != nil {
		return models.PublicUser{}, f.lookupErr
	}
	if username != "alice" {
		return models.PublicUser{}, common.ErrorNotFound
	}
	return alice.Public(), nil
}

type fakeUploads struct {
	err      error
	username string
	filename string
	body     string
}

func (f *fakeUploads) Upload(ctx context.Context, username, filename string, r io.Reader) (string, error) {
	f.username, f.filename = username, filename
	b, _ := io.ReadAll(r)
	f.body = string(b)
	if f.err != nil {
		return "", f.err
	}
	return "uploads/" + username + ".txt", nil
}

func newTestServer(us *fakeUsers, up *fakeUploads, opts Options) http.Handler {
	return NewHTTPServer(":0", nil, us, up, opts).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func jsonReq(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRoot(t *testing.T) {
	rec, body := do(t, newTestServer(&fakeUsers{}, &fakeUploads{}, Options{}), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"Hello": "World"}, body)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "ok", body: `{"username":"alice","email":"a@x.com","password":"pw1"}`, wantStatus: http.StatusOK},
		{name: "username taken", body: `{"username":"alice","email":"a@x.com","password":"pw1"}`, err: common.ErrUsernameTaken,
			wantStatus: http.StatusBadRequest, wantDetail: "Username already registered"},
		{name: "email taken", body: `{"username":"bob","email":"a@x.com","password":"pw2"}`, err: common.ErrEmailTaken,
			wantStatus: http.StatusBadRequest, wantDetail: "Email already registered"},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest, wantDetail: "Invalid request body"},
		{name: "missing password", body: `{"username":"alice","email":"a@x.com"}`, wantStatus: http.StatusBadRequest,
			wantDetail: "username, email and password are required"},
		{name: "internal", body: `{"username":"alice","email":"a@x.com","password":"pw1"}`, err: common.ErrorInternal,
			wantStatus: http.StatusInternalServerError, wantDetail: "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := &fakeUsers{signupErr: tt.err}
			rec, body := do(t, newTestServer(us, &fakeUploads{}, Options{}), jsonReq(http.MethodPost, "/signup", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
				return
			}
			assert.Equal(t, "tok-alice", body["token"])
			assert.Equal(t, []string{"alice", "a@x.com", "pw1"}, us.gotSignup)
		})
	}
}

func TestSignup_ValidationDetail(t *testing.T) {
	us := &fakeUsers{signupErr: errors.Join(common.ErrorValidation, errors.New("password longer than 72 bytes"))}
	rec, body := do(t, newTestServer(us, &fakeUploads{}, Options{}),
		jsonReq(http.MethodPost, "/signup", `{"username":"alice","email":"a@x.com","password":"x"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "72 bytes")
}

func TestLogin(t *testing.T) {
	us := &fakeUsers{}
	rec, body := do(t, newTestServer(us, &fakeUploads{}, Options{}),
		jsonReq(http.MethodPost, "/login", `{"username":"a@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-login", body["token"])
	assert.Equal(t, []string{"a@x.com", "pw1"}, us.gotLogin)

	us = &fakeUsers{loginErr: common.ErrInvalidCredentials}
	rec, body = do(t, newTestServer(us, &fakeUploads{}, Options{}),
		jsonReq(http.MethodPost, "/login", `{"username":"alice","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Incorrect username or password", body["detail"])
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	us = &fakeUsers{loginErr: common.ErrorInternal}
	rec, _ = do(t, newTestServer(us, &fakeUploads{}, Options{}),
		jsonReq(http.MethodPost, "/login", `{"username":"alice","password":"pw"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, newTestServer(&fakeUsers{}, &fakeUploads{}, Options{}),
		jsonReq(http.MethodPost, "/login", `{"username":"alice"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersMe(t *testing.T) {
	h := newTestServer(&fakeUsers{}, &fakeUploads{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec, body := do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"username": "alice", "email": "a@x.com"}, body)

	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "bearer good")
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code, "scheme is case-insensitive")
}

func TestUsersMe_Unauthorized(t *testing.T) {
	h := newTestServer(&fakeUsers{}, &fakeUploads{}, Options{})

	tests := []struct {
		header string
		detail string
	}{
		{"", "Not authenticated"},
		{"Basic Zm9vOmJhcg==", "Not authenticated"},
		{"Bearer ", "Not authenticated"},
		{"Bearer forged", "Could not validate credentials"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec, body := do(t, h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tt.header)
		assert.Equal(t, tt.detail, body["detail"], tt.header)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
}

func TestUserByName(t *testing.T) {
	h := newTestServer(&fakeUsers{}, &fakeUploads{}, Options{})

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/users/alice", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"username": "alice", "email": "a@x.com"}, body)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec, body = do(t, h, httptest.NewRequest(http.MethodGet, "/users/nonexistentuser", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", body["detail"])

	h = newTestServer(&fakeUsers{lookupErr: common.ErrorInternal}, &fakeUploads{}, Options{})
	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/users/alice", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func multipartReq(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer good")
	return req
}

func TestUpload(t *testing.T) {
	up := &fakeUploads{}
	h := newTestServer(&fakeUsers{}, up, Options{MaxUploadSize: 1 << 20})

	rec, body := do(t, h, multipartReq(t, "file", "notes.txt", "hello"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "File uploaded successfully", body["message"])
	assert.Equal(t, "uploads/alice.txt", body["file_path"])
	assert.Equal(t, "alice", up.username)
	assert.Equal(t, "notes.txt", up.filename)
	assert.Equal(t, "hello", up.body)
}

func TestUpload_Errors(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		req := multipartReq(t, "file", "notes.txt", "hello")
		req.Header.Del("Authorization")
		rec, _ := do(t, newTestServer(&fakeUsers{}, &fakeUploads{}, Options{}), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		rec, body := do(t, newTestServer(&fakeUsers{}, &fakeUploads{}, Options{}), multipartReq(t, "other", "notes.txt", "hello"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing file", body["detail"])
	})

	t.Run("too large", func(t *testing.T) {
		h := newTestServer(&fakeUsers{}, &fakeUploads{}, Options{MaxUploadSize: 64})
		rec, body := do(t, h, multipartReq(t, "file", "big.bin", strings.Repeat("x", 4096)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "File too large", body["detail"])
	})

	t.Run("validation", func(t *testing.T) {
		up := &fakeUploads{err: common.ErrorValidation}
		rec, _ := do(t, newTestServer(&fakeUsers{}, up, Options{}), multipartReq(t, "file", "trailing.", "x"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		up := &fakeUploads{err: common.ErrorInternal}
		rec, body := do(t, newTestServer(&fakeUsers{}, up, Options{}), multipartReq(t, "file", "a.txt", "x"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Could not save file", body["detail"])
	})
}
