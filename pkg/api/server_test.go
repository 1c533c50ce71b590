package api

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meshwork-app/meshwork-api/pkg/httputil"
	"github.com/meshwork-app/meshwork-api/pkg/model"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/store"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

const testSigningSecret = "api-test-signing-secret-32-bytes!"

// captureMailer records outbound mail instead of sending it.
type captureMailer struct {
	signupTokens  []string
	recoverTokens []string
}

func (m *captureMailer) SendSignup(_ context.Context, _ *model.User, confirmToken string) error {
	m.signupTokens = append(m.signupTokens, confirmToken)
	return nil
}

func (m *captureMailer) SendRecover(_ context.Context, _ *model.User, resetToken string) error {
	m.recoverTokens = append(m.recoverTokens, resetToken)
	return nil
}

type testServer struct {
	*Server
	mock   sqlmock.Sqlmock
	tokens *token.Service
	mail   *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens := token.NewService(testSigningSecret)
	mail := &captureMailer{}
	srv := NewServer(Options{
		Stores: store.New(db),
		Tokens: tokens,
		Hasher: password.NewHasher(bcrypt.MinCost, 2),
		Mailer: mail,
		Logger: observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	return &testServer{Server: srv, mock: mock, tokens: tokens, mail: mail}
}

func (ts *testServer) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", httputil.MediaType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

var userCols = []string{
	"id", "username", "password_hash", "firstname", "lastname", "email", "phone",
	"jobtitle", "department", "is_admin", "is_confirmed", "created_at", "updated_at", "deleted_at",
}

type rowUser struct {
	id        string
	username  string
	hash      string
	email     string
	isAdmin   bool
	confirmed bool
	createdAt time.Time
	deletedAt interface{}
}

func hashFor(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := password.NewHasher(bcrypt.MinCost, 1).Hash(context.Background(), plaintext)
	require.NoError(t, err)
	return h
}

func (u rowUser) rows() *sqlmock.Rows {
	created := u.createdAt
	if created.IsZero() {
		created = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return sqlmock.NewRows(userCols).AddRow(
		u.id, u.username, u.hash, nil, nil, u.email, nil,
		nil, nil, u.isAdmin, u.confirmed, created, created, u.deletedAt,
	)
}

// bearerFor issues a live access token for a stub user.
func (ts *testServer) bearerFor(t *testing.T, id string, admin bool) string {
	t.Helper()
	raw, err := ts.tokens.Issue(token.KindAccess, &model.User{
		ID:        id,
		Username:  "bearer",
		Email:     "bearer@example.com",
		IsAdmin:   admin,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return "Bearer " + raw
}
