package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anchorage-labs/anchorage/internal/permissions"
)

func menuPerm(id, name, parentID string, sort int) permissions.Permission {
	return permissions.Permission{
		ID:       id,
		Name:     name,
		Kind:     permissions.KindMenu,
		ParentID: parentID,
		Sort:     sort,
		Status:   permissions.StatusActive,
	}
}

func TestBuildMenuTreeNestsChildren(t *testing.T) {
	perms := []permissions.Permission{
		menuPerm("dash", "Dashboard", "", 1),
		menuPerm("sys", "System", "", 2),
		menuPerm("sys-users", "Users", "sys", 1),
		menuPerm("sys-roles", "Roles", "sys", 2),
	}

	forest := BuildMenuTree(perms)
	require.Len(t, forest, 2)
	require.Equal(t, "dash", forest[0].ID)
	require.Equal(t, "sys", forest[1].ID)
	require.Len(t, forest[1].Children, 2)
	require.Equal(t, "sys-users", forest[1].Children[0].ID)
	require.Equal(t, "sys-roles", forest[1].Children[1].ID)
}

func TestBuildMenuTreeFiltersKindAndStatus(t *testing.T) {
	inactive := menuPerm("hidden", "Hidden", "", 1)
	inactive.Status = permissions.StatusInactive
	button := permissions.Permission{
		ID: "btn", Name: "Create", Kind: permissions.KindButton,
		Status: permissions.StatusActive,
	}
	api := permissions.Permission{
		ID: "api", Name: "Export", Kind: permissions.KindAPI,
		Status: permissions.StatusActive,
	}

	forest := BuildMenuTree([]permissions.Permission{
		inactive, button, api, menuPerm("dash", "Dashboard", "", 1),
	})
	require.Len(t, forest, 1)
	require.Equal(t, "dash", forest[0].ID)
}

func TestBuildMenuTreePromotesDanglingParent(t *testing.T) {
	// Parent is a button, so it is filtered out of the menu set; the child
	// surfaces as a root rather than disappearing.
	parent := permissions.Permission{
		ID: "actions", Name: "Actions", Kind: permissions.KindButton,
		Status: permissions.StatusActive,
	}
	child := menuPerm("orphan", "Orphan", "actions", 1)

	forest := BuildMenuTree([]permissions.Permission{parent, child})
	require.Len(t, forest, 1)
	require.Equal(t, "orphan", forest[0].ID)
	require.Empty(t, forest[0].Children)
}

func TestBuildMenuTreeSortsSiblings(t *testing.T) {
	forest := BuildMenuTree([]permissions.Permission{
		menuPerm("c", "Charlie", "", 2),
		menuPerm("a", "Alpha", "", 1),
		menuPerm("b", "Bravo", "", 2),
	})
	require.Len(t, forest, 3)
	require.Equal(t, "a", forest[0].ID)
	// Equal sort keys fall back to name order.
	require.Equal(t, "b", forest[1].ID)
	require.Equal(t, "c", forest[2].ID)
}

func TestBuildMenuTreeIsDeterministic(t *testing.T) {
	perms := []permissions.Permission{
		menuPerm("sys", "System", "", 2),
		menuPerm("dash", "Dashboard", "", 1),
		menuPerm("sys-users", "Users", "sys", 1),
	}

	first := BuildMenuTree(perms)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, BuildMenuTree(perms))
	}
}

func TestBuildMenuTreeDoesNotMutateInput(t *testing.T) {
	perms := []permissions.Permission{
		menuPerm("sys", "System", "", 1),
		menuPerm("sys-users", "Users", "sys", 1),
	}
	snapshot := make([]permissions.Permission, len(perms))
	copy(snapshot, perms)

	_ = BuildMenuTree(perms)
	require.Equal(t, snapshot, perms)
}

func TestBuildMenuTreeEmptyInput(t *testing.T) {
	require.Nil(t, BuildMenuTree(nil))
	require.Nil(t, BuildMenuTree([]permissions.Permission{}))
}

func TestBuildMenuTreeCycleDoesNotLoop(t *testing.T) {
	a := menuPerm("a", "A", "b", 1)
	b := menuPerm("b", "B", "a", 1)

	forest := BuildMenuTree([]permissions.Permission{a, b})
	// Both members reference an existing parent, so neither is a root; the
	// cycle is dropped instead of recursing forever.
	require.Nil(t, forest)
}
