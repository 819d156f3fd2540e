package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/config"
	"github.com/easybuy/backend/internal/hash"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/payment"
	"github.com/easybuy/backend/internal/service/token"
	"github.com/easybuy/backend/internal/storage"
)

type fakeStorage struct {
	uploads   int
	destroyed []string
	uploadErr error
}

func (f *fakeStorage) Upload(_ context.Context, folder, filename string, _ io.Reader) (storage.Object, error) {
	if f.uploadErr != nil {
		return storage.Object{}, f.uploadErr
	}
	f.uploads++
	key := folder + "/" + filename
	return storage.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (f *fakeStorage) Destroy(_ context.Context, key string) error {
	f.destroyed = append(f.destroyed, key)
	return nil
}

type fakeMailer struct {
	to      string
	subject string
	body    string
	sendErr error
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.to, f.subject, f.body = to, subject, body
	return nil
}

type fakeGateway struct {
	url         string
	createErr   error
	lastInput   payment.CheckoutInput
	event       payment.Event
	verifyErr   error
	customers   map[string]payment.Customer
	customerErr error
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, in payment.CheckoutInput) (string, error) {
	f.lastInput = in
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.url, nil
}

func (f *fakeGateway) VerifyEvent(_ []byte, _ string) (payment.Event, error) {
	if f.verifyErr != nil {
		return payment.Event{}, f.verifyErr
	}
	return f.event, nil
}

func (f *fakeGateway) Customer(_ context.Context, id string) (payment.Customer, error) {
	if f.customerErr != nil {
		return payment.Customer{}, f.customerErr
	}
	cust, ok := f.customers[id]
	if !ok {
		return payment.Customer{}, errors.New("no such customer")
	}
	return cust, nil
}

type testEnv struct {
	E       *echo.Echo
	DB      *gorm.DB
	Tokens  *token.Service
	Storage *fakeStorage
	Mailer  *fakeMailer
	Gateway *fakeGateway
	Auth    *AuthHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	env := &testEnv{
		E:       echo.New(),
		DB:      db,
		Tokens:  &token.Service{JWTSecret: []byte("test_secret")},
		Storage: &fakeStorage{},
		Mailer:  &fakeMailer{},
		Gateway: &fakeGateway{url: "https://checkout.test/session", customers: map[string]payment.Customer{}},
	}
	env.Auth = &AuthHandler{
		DB:          db,
		Tokens:      env.Tokens,
		Storage:     env.Storage,
		Mailer:      env.Mailer,
		FrontendURL: "https://shop.test",
	}
	return env
}

func (env *testEnv) jsonContext(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func (env *testEnv) multipartContext(t *testing.T, target string, fields map[string]string, fileField, filename string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func (env *testEnv) createUser(t *testing.T, email, password, role string) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
		AvatarKey:    "easybuy/avatars/test.png",
		AvatarURL:    "https://cdn.test/easybuy/avatars/test.png",
	}
	require.NoError(t, env.DB.Create(user).Error)
	return user
}

// withUser mimics the RequireLogin middleware for direct handler calls.
func withUser(c echo.Context, user *models.User) {
	c.Set("current_user", user)
}
