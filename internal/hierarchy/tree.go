// Package hierarchy answers structural queries over the category forest: each
// node points at an optional parent, and traversal never follows a node twice.
package hierarchy

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNodeNotFound = errors.New("hierarchy: node not found")
	ErrCycle        = errors.New("hierarchy: parent chain contains a cycle")
)

// FullNameSeparator joins ancestor names in FullName.
const FullNameSeparator = " > "

type Node struct {
	ID        uuid.UUID
	ParentID  *uuid.UUID
	Name      string
	Slug      string
	SortOrder int
}

// Crumb is one breadcrumb entry; Current is set on the last entry only.
type Crumb struct {
	ID      uuid.UUID
	Name    string
	Slug    string
	Current bool
}

// Tree is an immutable snapshot of the forest.
type Tree struct {
	nodes    map[uuid.UUID]Node
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// New indexes nodes. A node whose parent is not part of the snapshot, such as
// the child of a trashed category, is listed among the roots.
func New(nodes []Node) *Tree {
	t := &Tree{
		nodes:    make(map[uuid.UUID]Node, len(nodes)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID == nil {
			t.roots = append(t.roots, n.ID)
			continue
		}
		if _, ok := t.nodes[*n.ParentID]; ok {
			t.children[*n.ParentID] = append(t.children[*n.ParentID], n.ID)
		} else {
			t.roots = append(t.roots, n.ID)
		}
	}
	t.sortIDs(t.roots)
	for _, ids := range t.children {
		t.sortIDs(ids)
	}
	return t
}

// sortIDs orders siblings by sort_order, then name, then id.
func (t *Tree) sortIDs(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID.String() < b.ID.String()
	})
}

func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) Node(id uuid.UUID) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) Roots() []Node {
	return t.collect(t.roots)
}

func (t *Tree) Children(id uuid.UUID) []Node {
	return t.collect(t.children[id])
}

func (t *Tree) HasChildren(id uuid.UUID) bool {
	return len(t.children[id]) > 0
}

func (t *Tree) collect(ids []uuid.UUID) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// Ancestors returns the chain from the root down to the direct parent of id.
// The walk stops at the first parent missing from the snapshot.
func (t *Tree) Ancestors(id uuid.UUID) ([]Node, error) {
	node, ok := t.nodes[id]
	if !ok {
		return nil, ErrNodeNotFound
	}

	seen := map[uuid.UUID]struct{}{id: {}}
	var chain []Node
	for node.ParentID != nil {
		parent, ok := t.nodes[*node.ParentID]
		if !ok {
			break
		}
		if _, dup := seen[parent.ID]; dup {
			return nil, ErrCycle
		}
		seen[parent.ID] = struct{}{}
		chain = append(chain, parent)
		node = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Depth is the number of ancestors; roots have depth 0.
func (t *Tree) Depth(id uuid.UUID) (int, error) {
	chain, err := t.Ancestors(id)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// DescendantIDs lists every node below id in depth-first preorder, excluding id.
func (t *Tree) DescendantIDs(id uuid.UUID) ([]uuid.UUID, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, ErrNodeNotFound
	}

	seen := map[uuid.UUID]struct{}{id: {}}
	var out []uuid.UUID
	var walk func(uuid.UUID) error
	walk = func(current uuid.UUID) error {
		for _, child := range t.children[current] {
			if _, dup := seen[child]; dup {
				return ErrCycle
			}
			seen[child] = struct{}{}
			out = append(out, child)
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(id); err != nil {
		return nil, err
	}
	return out, nil
}

// SubtreeIDs is id followed by DescendantIDs(id).
func (t *Tree) SubtreeIDs(id uuid.UUID) ([]uuid.UUID, error) {
	descendants, err := t.DescendantIDs(id)
	if err != nil {
		return nil, err
	}
	return append([]uuid.UUID{id}, descendants...), nil
}

// Breadcrumb is the ancestor chain followed by the node itself.
func (t *Tree) Breadcrumb(id uuid.UUID) ([]Crumb, error) {
	chain, err := t.Ancestors(id)
	if err != nil {
		return nil, err
	}
	chain = append(chain, t.nodes[id])

	crumbs := make([]Crumb, len(chain))
	for i, n := range chain {
		crumbs[i] = Crumb{ID: n.ID, Name: n.Name, Slug: n.Slug, Current: i == len(chain)-1}
	}
	return crumbs, nil
}

// FullName joins the breadcrumb names, e.g. "Electronics > Phones > Android".
func (t *Tree) FullName(id uuid.UUID) (string, error) {
	crumbs, err := t.Breadcrumb(id)
	if err != nil {
		return "", err
	}
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return strings.Join(names, FullNameSeparator), nil
}

// CheckReparent rejects moving id under itself or under one of its descendants.
// A nil parent always succeeds. The new parent must be part of the snapshot.
func (t *Tree) CheckReparent(id uuid.UUID, parent *uuid.UUID) error {
	if parent == nil {
		return nil
	}
	if *parent == id {
		return ErrCycle
	}
	if _, ok := t.nodes[*parent]; !ok {
		return ErrNodeNotFound
	}
	if _, ok := t.nodes[id]; !ok {
		return nil
	}
	descendants, err := t.DescendantIDs(id)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d == *parent {
			return ErrCycle
		}
	}
	return nil
}

// Walk visits nodes depth-first starting at the roots, passing each node's depth.
func (t *Tree) Walk(visit func(n Node, depth int)) {
	seen := make(map[uuid.UUID]struct{}, len(t.nodes))
	var walk func(ids []uuid.UUID, depth int)
	walk = func(ids []uuid.UUID, depth int) {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			visit(t.nodes[id], depth)
			walk(t.children[id], depth+1)
		}
	}
	walk(t.roots, 0)
}
