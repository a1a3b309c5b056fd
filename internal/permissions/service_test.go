package permissions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/shared"
)

type memoryRepo struct {
	records  map[string]Permission
	children map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		records:  make(map[string]Permission),
		children: make(map[string]int64),
	}
}

func (r *memoryRepo) Create(ctx context.Context, p Permission) error {
	r.records[p.ID] = p
	return nil
}

func (r *memoryRepo) Save(ctx context.Context, p Permission) error {
	if _, ok := r.records[p.ID]; !ok {
		return fmt.Errorf("%w: permission %s", shared.ErrNotFound, p.ID)
	}
	r.records[p.ID] = p
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	delete(r.records, id)
	return nil
}

func (r *memoryRepo) Find(ctx context.Context, id string) (*Permission, error) {
	p, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: permission %s", shared.ErrNotFound, id)
	}
	return &p, nil
}

func (r *memoryRepo) FindByCode(ctx context.Context, code string) (*Permission, error) {
	for _, p := range r.records {
		if p.Code == code {
			found := p
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: permission code %s", shared.ErrNotFound, code)
}

func (r *memoryRepo) CountChildren(ctx context.Context, parentID string) (int64, error) {
	return r.children[parentID], nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Permission, error) {
	var result []Permission
	for _, p := range r.records {
		result = append(result, p)
	}
	return result, nil
}

func TestCreatePermission(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreateInput{
		Name: "Dashboard", Code: "dashboard", Kind: KindMenu, Sort: 1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, StatusActive, p.Status)
}

func TestCreatePermissionValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Name: "", Kind: KindMenu})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{Name: "X", Kind: Kind("widget")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePermissionDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Name: "A", Code: "dup", Kind: KindAPI})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Name: "B", Code: "dup", Kind: KindAPI})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreatePermissionUnknownParent(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{
		Name: "Child", Kind: KindMenu, ParentID: "missing",
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdatePermission(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreateInput{Name: "Dashboard", Kind: KindMenu})
	require.NoError(t, err)

	name := "Overview"
	status := StatusInactive
	err = svc.Update(context.Background(), p.ID, UpdateInput{Name: &name, Status: &status})
	require.NoError(t, err)

	updated := repo.records[p.ID]
	require.Equal(t, "Overview", updated.Name)
	require.Equal(t, StatusInactive, updated.Status)
}

func TestUpdatePermissionRejectsSelfParent(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), CreateInput{Name: "Dashboard", Kind: KindMenu})
	require.NoError(t, err)

	err = svc.Update(context.Background(), p.ID, UpdateInput{ParentID: &p.ID})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeletePermissionWithChildrenRefused(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreateInput{Name: "System", Kind: KindMenu})
	require.NoError(t, err)

	repo.children[p.ID] = 1
	err = svc.Delete(context.Background(), p.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.children[p.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), p.ID))
}
