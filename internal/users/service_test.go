package users

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

type memoryRepo struct {
	aggregates map[string]*Aggregate
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{aggregates: make(map[string]*Aggregate)}
}

func (r *memoryRepo) FindAggregate(ctx context.Context, id string) (*Aggregate, error) {
	agg, ok := r.aggregates[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	clone := *agg
	clone.RoleIDs = append([]string(nil), agg.RoleIDs...)
	return &clone, nil
}

func (r *memoryRepo) CreateAggregate(ctx context.Context, agg *Aggregate) error {
	r.aggregates[agg.User.ID] = agg
	return nil
}

func (r *memoryRepo) SaveAggregate(ctx context.Context, agg *Aggregate) error {
	if _, ok := r.aggregates[agg.User.ID]; !ok {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, agg.User.ID)
	}
	r.aggregates[agg.User.ID] = agg
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	delete(r.aggregates, id)
	return nil
}

func (r *memoryRepo) Find(ctx context.Context, id string) (*User, error) {
	agg, err := r.FindAggregate(ctx, id)
	if err != nil {
		return nil, err
	}
	return &agg.User, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]User, error) {
	var result []User
	for _, agg := range r.aggregates {
		result = append(result, agg.User)
	}
	return result, nil
}

func (r *memoryRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, agg := range r.aggregates {
		if agg.User.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, agg := range r.aggregates {
		if agg.User.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type plainHasher struct{}

func (plainHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("%w: empty secret", shared.ErrValidation)
	}
	return "hash:" + secret, nil
}

type stubSettings struct {
	value string
	err   error
}

func (s stubSettings) DefaultPassword(ctx context.Context) (string, error) {
	return s.value, s.err
}

type stubRoles struct {
	known map[string]bool
}

func (s stubRoles) Exists(ctx context.Context, roleID string) (bool, error) {
	return s.known[roleID], nil
}

func newUserFixture(settings SettingsSource, knownRoles ...string) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	known := make(map[string]bool)
	for _, id := range knownRoles {
		known[id] = true
	}
	svc := NewService(repo, plainHasher{}, settings, stubRoles{known: known}, nil)
	return svc, repo
}

func TestCreateUser(t *testing.T) {
	svc, repo := newUserFixture(stubSettings{}, "r1")

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael",
		Email:    "ishmael@example.com",
		Password: "call-me",
		RoleIDs:  []string{"r1", "r1"},
	})
	require.NoError(t, err)
	require.Equal(t, "hash:call-me", user.PasswordHash)
	require.Equal(t, StatusActive, user.Status)

	agg := repo.aggregates[user.ID]
	// Duplicate role input collapses to a single edge.
	require.Equal(t, []string{"r1"}, agg.RoleIDs)
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	svc, _ := newUserFixture(stubSettings{})

	_, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "ishmael@example.com", Password: "x",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "other@example.com", Password: "x",
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Username: "queequeg", Email: "ishmael@example.com", Password: "x",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignRoleUnknownRole(t *testing.T) {
	svc, _ := newUserFixture(stubSettings{})

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "x",
	})
	require.NoError(t, err)

	err = svc.AssignRole(context.Background(), user.ID, "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAssignRoleIsIdempotent(t *testing.T) {
	svc, repo := newUserFixture(stubSettings{}, "r1")

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "x",
	})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), user.ID, "r1"))
	require.NoError(t, svc.AssignRole(context.Background(), user.ID, "r1"))
	require.Equal(t, []string{"r1"}, repo.aggregates[user.ID].RoleIDs)
}

func TestRevokeRoleNotHeldIsNoop(t *testing.T) {
	svc, _ := newUserFixture(stubSettings{}, "r1")

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "x",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRole(context.Background(), user.ID, "r1"))
}

func TestResetPasswordUsesSetting(t *testing.T) {
	svc, repo := newUserFixture(stubSettings{value: "fleet-default"})

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "original",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), user.ID))
	require.Equal(t, "hash:fleet-default", repo.aggregates[user.ID].User.PasswordHash)
}

func TestResetPasswordFallsBack(t *testing.T) {
	svc, repo := newUserFixture(stubSettings{err: fmt.Errorf("%w: setting", shared.ErrNotFound)})

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "original",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(context.Background(), user.ID))
	require.Equal(t, "hash:"+fallbackDefaultPassword, repo.aggregates[user.ID].User.PasswordHash)
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	svc, _ := newUserFixture(stubSettings{})

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "x",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), user.ID, StatusDisabled))
	err = svc.SetStatus(context.Background(), user.ID, Status("frozen"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConcurrentRoleEditsLastWriterWins(t *testing.T) {
	svc, repo := newUserFixture(stubSettings{}, "r1", "r2")

	user, err := svc.Create(context.Background(), CreateInput{
		Username: "ishmael", Email: "i@example.com", Password: "x",
	})
	require.NoError(t, err)

	// Two editors load the same snapshot, then save one after the other.
	// The store keeps whichever aggregate landed last, with no partial
	// merge of the two edge sets.
	first, err := repo.FindAggregate(context.Background(), user.ID)
	require.NoError(t, err)
	second, err := repo.FindAggregate(context.Background(), user.ID)
	require.NoError(t, err)

	first.AssignRole("r1")
	require.NoError(t, repo.SaveAggregate(context.Background(), first))

	second.AssignRole("r2")
	require.NoError(t, repo.SaveAggregate(context.Background(), second))

	require.Equal(t, []string{"r2"}, repo.aggregates[user.ID].RoleIDs)
}
