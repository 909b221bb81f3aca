package hierarchy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	tree                                 *Tree
	electronics, phones, android, laptop uuid.UUID
	books, fiction                       uuid.UUID
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

// electronics
// ├── laptops (sort 0)
// └── phones (sort 1)
//     └── android
// books
// └── fiction
func newFixture() fixture {
	f := fixture{
		electronics: uuid.New(), phones: uuid.New(), android: uuid.New(), laptop: uuid.New(),
		books: uuid.New(), fiction: uuid.New(),
	}
	f.tree = New([]Node{
		{ID: f.android, ParentID: ptr(f.phones), Name: "Android", Slug: "android"},
		{ID: f.books, Name: "Books", Slug: "books", SortOrder: 1},
		{ID: f.phones, ParentID: ptr(f.electronics), Name: "Phones", Slug: "phones", SortOrder: 1},
		{ID: f.electronics, Name: "Electronics", Slug: "electronics"},
		{ID: f.laptop, ParentID: ptr(f.electronics), Name: "Laptops", Slug: "laptops"},
		{ID: f.fiction, ParentID: ptr(f.books), Name: "Fiction", Slug: "fiction"},
	})
	return f
}

func ids(nodes []Node) []uuid.UUID {
	out := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestAncestors_RootFirst(t *testing.T) {
	f := newFixture()

	chain, err := f.tree.Ancestors(f.android)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.electronics, f.phones}, ids(chain))

	rootChain, err := f.tree.Ancestors(f.electronics)
	require.NoError(t, err)
	assert.Empty(t, rootChain)
}

func TestAncestors_UnknownNode(t *testing.T) {
	f := newFixture()
	_, err := f.tree.Ancestors(uuid.New())
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestAncestors_StopsAtMissingParent(t *testing.T) {
	orphan := uuid.New()
	tree := New([]Node{{ID: orphan, ParentID: ptr(uuid.New()), Name: "Orphan"}})

	chain, err := tree.Ancestors(orphan)
	require.NoError(t, err)
	assert.Empty(t, chain)

	depth, err := tree.Depth(orphan)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
	require.Len(t, tree.Roots(), 1)
	assert.Equal(t, orphan, tree.Roots()[0].ID)
}

func TestWalk_IncludesChildrenOfMissingParents(t *testing.T) {
	root, orphan, grandchild := uuid.New(), uuid.New(), uuid.New()
	tree := New([]Node{
		{ID: root, Name: "Books"},
		{ID: orphan, ParentID: ptr(uuid.New()), Name: "Comics"},
		{ID: grandchild, ParentID: ptr(orphan), Name: "Manga"},
	})

	depths := map[uuid.UUID]int{}
	tree.Walk(func(n Node, depth int) { depths[n.ID] = depth })
	assert.Equal(t, map[uuid.UUID]int{root: 0, orphan: 0, grandchild: 1}, depths)
}

func TestAncestors_CycleIsReportedNotLooped(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	tree := New([]Node{
		{ID: a, ParentID: ptr(b), Name: "A"},
		{ID: b, ParentID: ptr(a), Name: "B"},
	})

	_, err := tree.Ancestors(a)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestDepth(t *testing.T) {
	f := newFixture()
	for id, want := range map[uuid.UUID]int{f.electronics: 0, f.phones: 1, f.android: 2} {
		got, err := f.tree.Depth(id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDescendantIDs_PreorderExcludingSelf(t *testing.T) {
	f := newFixture()

	got, err := f.tree.DescendantIDs(f.electronics)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.laptop, f.phones, f.android}, got)
	assert.NotContains(t, got, f.electronics)

	leaf, err := f.tree.DescendantIDs(f.android)
	require.NoError(t, err)
	assert.Empty(t, leaf)
}

func TestSubtreeIDs_IncludesSelf(t *testing.T) {
	f := newFixture()
	got, err := f.tree.SubtreeIDs(f.books)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.books, f.fiction}, got)
}

func TestChildrenOrdering(t *testing.T) {
	f := newFixture()
	assert.Equal(t, []uuid.UUID{f.laptop, f.phones}, ids(f.tree.Children(f.electronics)))
	assert.Equal(t, []uuid.UUID{f.electronics, f.books}, ids(f.tree.Roots()))
	assert.True(t, f.tree.HasChildren(f.phones))
	assert.False(t, f.tree.HasChildren(f.android))
}

func TestChildrenOrdering_NameBreaksSortOrderTies(t *testing.T) {
	parent, zed, alpha := uuid.New(), uuid.New(), uuid.New()
	tree := New([]Node{
		{ID: parent, Name: "Parent"},
		{ID: zed, ParentID: ptr(parent), Name: "Zed", SortOrder: 2},
		{ID: alpha, ParentID: ptr(parent), Name: "Alpha", SortOrder: 2},
	})
	assert.Equal(t, []uuid.UUID{alpha, zed}, ids(tree.Children(parent)))
}

func TestBreadcrumb(t *testing.T) {
	f := newFixture()

	crumbs, err := f.tree.Breadcrumb(f.android)
	require.NoError(t, err)
	require.Len(t, crumbs, 3)
	assert.Equal(t, "electronics", crumbs[0].Slug)
	assert.Equal(t, "phones", crumbs[1].Slug)
	assert.Equal(t, "android", crumbs[2].Slug)
	assert.False(t, crumbs[0].Current)
	assert.False(t, crumbs[1].Current)
	assert.True(t, crumbs[2].Current)
}

func TestFullName(t *testing.T) {
	f := newFixture()
	name, err := f.tree.FullName(f.android)
	require.NoError(t, err)
	assert.Equal(t, "Electronics > Phones > Android", name)
}

func TestCheckReparent(t *testing.T) {
	f := newFixture()

	assert.NoError(t, f.tree.CheckReparent(f.phones, nil))
	assert.NoError(t, f.tree.CheckReparent(f.phones, ptr(f.books)))
	assert.ErrorIs(t, f.tree.CheckReparent(f.phones, ptr(f.phones)), ErrCycle)
	assert.ErrorIs(t, f.tree.CheckReparent(f.electronics, ptr(f.android)), ErrCycle)
	assert.ErrorIs(t, f.tree.CheckReparent(f.phones, ptr(uuid.New())), ErrNodeNotFound)
}

func TestWalk(t *testing.T) {
	f := newFixture()
	var visited []uuid.UUID
	depths := map[uuid.UUID]int{}
	f.tree.Walk(func(n Node, depth int) {
		visited = append(visited, n.ID)
		depths[n.ID] = depth
	})
	assert.Equal(t, []uuid.UUID{f.electronics, f.laptop, f.phones, f.android, f.books, f.fiction}, visited)
	assert.Equal(t, 2, depths[f.android])
}
