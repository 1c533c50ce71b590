package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/schema"
)

func testHasher() *password.Hasher {
	return password.NewHasher(bcrypt.MinCost, 2)
}

func testUser(t *testing.T) *User {
	t.Helper()
	hash, err := testHasher().Hash(context.Background(), "Sup3rSecret")
	require.NoError(t, err)
	return &User{
		ID:           "8d5b2fc3-6e4a-4d0e-9c5a-9f65c4a0a111",
		Username:     "john.doe",
		PasswordHash: hash,
		Email:        "john.doe@example.com",
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC),
	}
}

func TestUsersProjections(t *testing.T) {
	assert.Equal(t,
		[]string{"id", "username", "firstname", "lastname", "jobtitle", "department", "is_admin"},
		Users.MustProjection(schema.Public))
	assert.Equal(t,
		[]string{"id", "username", "firstname", "lastname", "email", "phone", "jobtitle", "department", "is_admin", "is_confirmed"},
		Users.MustProjection(schema.Owner))
	assert.Equal(t,
		[]string{"username", "password", "email"},
		Users.MustProjection(schema.Mandatory))
	assert.Equal(t,
		[]string{"username"},
		Users.MustProjection(schema.Searchable))
	assert.Equal(t,
		[]string{"username", "password", "firstname", "lastname", "email", "phone", "jobtitle", "department"},
		Users.MustProjection(schema.Editable))
}

func TestCheckPassword(t *testing.T) {
	u := testUser(t)
	assert.True(t, u.CheckPassword("Sup3rSecret"))
	assert.False(t, u.CheckPassword("WrongSecret1"))
}

func TestSecretChangesWithPassword(t *testing.T) {
	u := testUser(t)
	before := u.Secret()

	hash, err := testHasher().Hash(context.Background(), "An0therSecret")
	require.NoError(t, err)
	u.PasswordHash = hash

	assert.NotEqual(t, before, u.Secret())
}

func TestConfirmSecretChangesWithEmailOrFlag(t *testing.T) {
	u := testUser(t)
	before := u.ConfirmSecret()

	u.IsConfirmed = true
	flipped := u.ConfirmSecret()
	assert.NotEqual(t, before, flipped)

	u.Email = "new.address@example.com"
	assert.NotEqual(t, flipped, u.ConfirmSecret())
}

func TestProjectOmitsNothingRequested(t *testing.T) {
	u := testUser(t)
	job := "engineer"
	u.Jobtitle = &job

	attrs := u.Project(Users.MustProjection(schema.Public))
	assert.Equal(t, "john.doe", attrs["username"])
	assert.Equal(t, "engineer", attrs["jobtitle"])
	assert.Nil(t, attrs["firstname"])
	assert.NotContains(t, attrs, "email")
	assert.NotContains(t, attrs, "password_hash")
}

func TestDeriveOnWriteHashesPassword(t *testing.T) {
	h := testHasher()
	changes, err := DeriveOnWrite(context.Background(), nil, Changes{
		"username": "jane",
		"password": "Str0ngP4ss",
	}, h.Hash)
	require.NoError(t, err)

	assert.NotContains(t, changes, "password")
	require.Contains(t, changes, "password_hash")
	assert.True(t, password.Verify(changes["password_hash"].(string), "Str0ngP4ss"))
}

func TestDeriveOnWriteRejectsWeakPassword(t *testing.T) {
	h := testHasher()
	_, err := DeriveOnWrite(context.Background(), nil, Changes{"password": "weak"}, h.Hash)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Attr)
}

func TestDeriveOnWriteResetsConfirmationOnEmailChange(t *testing.T) {
	h := testHasher()
	u := testUser(t)
	u.IsConfirmed = true

	changes, err := DeriveOnWrite(context.Background(), u, Changes{
		"email": "moved@example.com",
	}, h.Hash)
	require.NoError(t, err)
	assert.Equal(t, false, changes["is_confirmed"])

	// Re-submitting the same address must not reset the flag.
	same, err := DeriveOnWrite(context.Background(), u, Changes{
		"email": u.Email,
	}, h.Hash)
	require.NoError(t, err)
	assert.NotContains(t, same, "is_confirmed")
}

func TestDeriveOnWriteDoesNotMutateInput(t *testing.T) {
	h := testHasher()
	in := Changes{"password": "Str0ngP4ss"}
	_, err := DeriveOnWrite(context.Background(), nil, in, h.Hash)
	require.NoError(t, err)
	assert.Equal(t, Changes{"password": "Str0ngP4ss"}, in)
}

func TestValidateUserChanges(t *testing.T) {
	errs := ValidateUserChanges(Changes{
		"username":  "ab",
		"firstname": "x",
		"email":     "not-an-email",
	})
	require.Len(t, errs, 3)

	attrs := make(map[string]bool)
	for _, e := range errs {
		attrs[e.Attr] = true
	}
	assert.True(t, attrs["username"])
	assert.True(t, attrs["firstname"])
	assert.True(t, attrs["email"])

	assert.Empty(t, ValidateUserChanges(Changes{
		"username": "jane",
		"email":    "jane@example.com",
	}))
}

func TestSanitize(t *testing.T) {
	out := Sanitize(Changes{"firstname": "", "lastname": "Doe"})
	assert.Nil(t, out["firstname"])
	assert.Equal(t, "Doe", out["lastname"])
}
