package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshwork-app/meshwork-api/pkg/model"
)

const testSecret = "unit-test-signing-secret"

func testUser() *model.User {
	return &model.User{
		ID:           "3f1f3c44-2c2e-4b35-8a79-52a7fd4e2f40",
		Username:     "jane",
		PasswordHash: "$2a$04$fakefakefakefakefakefakefakefakefakefakefakefakefake",
		Email:        "jane@example.com",
		CreatedAt:    time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
	}
}

func TestIssueVerifyAccess(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()
	u.IsAdmin = true

	raw, err := svc.Issue(KindAccess, u)
	require.NoError(t, err)

	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, string(KindAccess), claims.Type)
	assert.True(t, claims.IsAdmin)
}

func TestIssueRejectsDeletedSubject(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()
	now := time.Now()
	u.DeletedAt = &now

	_, err := svc.Issue(KindAccess, u)
	assert.ErrorIs(t, err, ErrSubjectDeleted)
}

func TestIssueRejectsUnknownKind(t *testing.T) {
	svc := NewService(testSecret)
	_, err := svc.Issue(Kind("refresh"), testUser())
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	svc := NewService(testSecret)
	raw, err := svc.Issue(KindAccess, testUser())
	require.NoError(t, err)

	other := NewService("a-different-secret")
	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsExpired(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	issuer := NewService(testSecret, WithClock(func() time.Time { return past }))

	raw, err := issuer.Issue(KindAccess, testUser())
	require.NoError(t, err)

	_, err = NewService(testSecret).Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestResetTokenInvalidatedByPasswordChange(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()

	raw, err := svc.Issue(KindReset, u)
	require.NoError(t, err)

	// Still valid against the current derived secret.
	claims, err := svc.VerifyWith(raw, u.Secret())
	require.NoError(t, err)
	assert.Equal(t, string(KindReset), claims.Type)

	// Password rotation changes the derivation input.
	u.PasswordHash = "$2a$04$anotherfakehashanotherfakehashanotherfakehashanother"
	_, err = svc.VerifyWith(raw, u.Secret())
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEmailTokenInvalidatedByConfirmation(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()

	raw, err := svc.Issue(KindEmail, u)
	require.NoError(t, err)

	claims, err := svc.VerifyWith(raw, u.ConfirmSecret())
	require.NoError(t, err)
	assert.Equal(t, u.Email, claims.Email)

	u.IsConfirmed = true
	_, err = svc.VerifyWith(raw, u.ConfirmSecret())
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSubjectWithoutVerification(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()

	raw, err := svc.Issue(KindReset, u)
	require.NoError(t, err)

	sub, err := svc.Subject(raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sub)

	_, err = svc.Subject("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAccessSecretDoesNotVerifyResetToken(t *testing.T) {
	svc := NewService(testSecret)
	u := testUser()

	raw, err := svc.Issue(KindReset, u)
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalid)
}
