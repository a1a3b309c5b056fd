package rbac

import (
	"sort"

	"github.com/anchorage-labs/anchorage/internal/permissions"
)

// MenuNode is a derived, non-persisted view of a menu permission carrying
// its ordered children.
type MenuNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code,omitempty"`
	Path      string     `json:"path,omitempty"`
	Component string     `json:"component,omitempty"`
	Icon      string     `json:"icon,omitempty"`
	Sort      int        `json:"sort"`
	ParentID  string     `json:"parentId,omitempty"`
	Children  []MenuNode `json:"children,omitempty"`
}

// BuildMenuTree assembles active menu permissions into a forest. Nodes
// whose parent identity has no match in the filtered set, including nodes
// with no parent at all, become roots. Sibling groups are ordered by
// ascending sort key, ties broken by name for determinism. The input is
// not mutated.
//
// A parent cycle leaves its members without a reachable root; they are
// dropped rather than looping.
func BuildMenuTree(perms []permissions.Permission) []MenuNode {
	nodes := make(map[string]MenuNode)
	for _, p := range perms {
		if p.Kind != permissions.KindMenu || p.Status != permissions.StatusActive {
			continue
		}
		nodes[p.ID] = MenuNode{
			ID:        p.ID,
			Name:      p.Name,
			Code:      p.Code,
			Path:      p.Path,
			Component: p.Component,
			Icon:      p.Icon,
			Sort:      p.Sort,
			ParentID:  p.ParentID,
		}
	}

	childIDs := make(map[string][]string)
	var rootIDs []string
	for id, node := range nodes {
		if node.ParentID == "" {
			rootIDs = append(rootIDs, id)
			continue
		}
		if _, ok := nodes[node.ParentID]; !ok {
			// Dangling parent reference: promote to root.
			rootIDs = append(rootIDs, id)
			continue
		}
		childIDs[node.ParentID] = append(childIDs[node.ParentID], id)
	}

	var attach func(ids []string) []MenuNode
	attach = func(ids []string) []MenuNode {
		group := make([]MenuNode, 0, len(ids))
		for _, id := range ids {
			node := nodes[id]
			node.Children = attach(childIDs[id])
			group = append(group, node)
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Sort != group[j].Sort {
				return group[i].Sort < group[j].Sort
			}
			return group[i].Name < group[j].Name
		})
		return group
	}

	forest := attach(rootIDs)
	if len(forest) == 0 {
		return nil
	}
	return forest
}
