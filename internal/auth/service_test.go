package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/roles"
	"github.com/anchorage-labs/anchorage/internal/shared"
	"github.com/anchorage-labs/anchorage/internal/users"
)

type memoryUserDir struct {
	byUsername map[string]*users.Aggregate
	byID       map[string]*users.Aggregate
	saved      []*users.Aggregate
}

func newMemoryUserDir() *memoryUserDir {
	return &memoryUserDir{
		byUsername: make(map[string]*users.Aggregate),
		byID:       make(map[string]*users.Aggregate),
	}
}

func (d *memoryUserDir) add(agg *users.Aggregate) {
	d.byUsername[agg.User.Username] = agg
	d.byID[agg.User.ID] = agg
}

func (d *memoryUserDir) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	agg, ok := d.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	u := agg.User
	return &u, nil
}

func (d *memoryUserDir) FindAggregate(ctx context.Context, id string) (*users.Aggregate, error) {
	agg, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return agg, nil
}

func (d *memoryUserDir) SaveAggregate(ctx context.Context, agg *users.Aggregate) error {
	d.saved = append(d.saved, agg)
	d.add(agg)
	return nil
}

type memoryRoleDir struct {
	records map[string]roles.Role
}

func (d *memoryRoleDir) FindByIDs(ctx context.Context, ids []string) ([]roles.Role, error) {
	var result []roles.Role
	for _, id := range ids {
		if r, ok := d.records[id]; ok {
			result = append(result, r)
		}
	}
	return result, nil
}

type stubRegistrar struct {
	created *users.User
}

func (r *stubRegistrar) Create(ctx context.Context, input users.CreateInput) (*users.User, error) {
	u := users.User{ID: "new-id", Username: input.Username, Email: input.Email, PasswordHash: "hashed"}
	r.created = &u
	return &u, nil
}

func newAuthFixture(t *testing.T) (*Service, *memoryUserDir, *memoryRoleDir) {
	t.Helper()
	hasher := Hasher{}
	tokens := NewTokenManager("unit-test-secret", time.Hour, newMemoryBlacklist(), nil)
	userDir := newMemoryUserDir()
	roleDir := &memoryRoleDir{records: make(map[string]roles.Role)}
	svc := NewService(tokens, hasher, userDir, roleDir, &stubRegistrar{}, nil)
	return svc, userDir, roleDir
}

func seedUser(t *testing.T, dir *memoryUserDir, username, password string, status users.Status) *users.Aggregate {
	t.Helper()
	hashed, err := Hasher{}.Hash(password)
	require.NoError(t, err)
	agg := users.NewAggregate(username, username+"@example.com", hashed, "", "")
	agg.SetStatus(status)
	dir.add(agg)
	return agg
}

func TestLoginSuccess(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)

	session, err := svc.Login(context.Background(), "ahab", "harpoon")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, "ahab", session.User.Username)
	require.Empty(t, session.User.PasswordHash)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)
	seedUser(t, userDir, "jonah", "swallowed", users.StatusDisabled)

	cases := map[string]struct {
		username string
		password string
	}{
		"unknown user":   {"nobody", "harpoon"},
		"wrong password": {"ahab", "wrong"},
		"disabled user":  {"jonah", "swallowed"},
		"empty username": {"", "harpoon"},
		"empty password": {"ahab", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.username, tc.password)
			require.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)

	session, err := svc.Login(context.Background(), "ahab", "harpoon")
	require.NoError(t, err)

	_, err = svc.tokens.Validate(context.Background(), session.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), session.Token))

	_, err = svc.tokens.Validate(context.Background(), session.Token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	agg := seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)

	err := svc.ChangePassword(context.Background(), agg.User.ID, "harpoon", "pequod")
	require.NoError(t, err)
	require.True(t, Hasher{}.Verify(agg.User.PasswordHash, "pequod"))

	_, err = svc.Login(context.Background(), "ahab", "pequod")
	require.NoError(t, err)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	agg := seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)

	err := svc.ChangePassword(context.Background(), agg.User.ID, "wrong", "pequod")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.True(t, Hasher{}.Verify(agg.User.PasswordHash, "harpoon"))
}

func TestChangePasswordRequiresNewSecret(t *testing.T) {
	svc, userDir, _ := newAuthFixture(t)
	agg := seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)

	err := svc.ChangePassword(context.Background(), agg.User.ID, "harpoon", "  ")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCurrentUser(t *testing.T) {
	svc, userDir, roleDir := newAuthFixture(t)
	agg := seedUser(t, userDir, "ahab", "harpoon", users.StatusActive)
	roleDir.records["r1"] = roles.Role{ID: "r1", Name: "Captain", Code: "captain"}
	agg.AssignRole("r1")

	profile, err := svc.CurrentUser(context.Background(), agg.User.ID)
	require.NoError(t, err)
	require.Equal(t, "ahab", profile.User.Username)
	require.Empty(t, profile.User.PasswordHash)
	require.Len(t, profile.Roles, 1)
	require.Equal(t, "captain", profile.Roles[0].Code)
}
