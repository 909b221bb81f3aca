package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"catalog-admin-service/internal/config"
	"catalog-admin-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := gorm.Open(sqlite.Open(path), config.GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func strPtr(s string) *string { return &s }

// RepositoryTestSuite runs the repositories against a fresh sqlite database per test
type RepositoryTestSuite struct {
	suite.Suite
	ctx        context.Context
	db         *gorm.DB
	categories *CategoryRepository
	products   *ProductRepository
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = openTestDB(s.T())
	s.categories = NewCategoryRepository(s.db, nil)
	s.products = NewProductRepository(s.db)
}

func (s *RepositoryTestSuite) createCategory(name string, parent *uuid.UUID) *models.Category {
	category := &models.Category{Name: name, ParentID: parent}
	s.Require().NoError(s.categories.Create(s.ctx, category))
	return category
}

func (s *RepositoryTestSuite) createProduct(name string, category *uuid.UUID) *models.Product {
	product := &models.Product{
		Name:          name,
		Price:         decimal.NewFromInt(10),
		CategoryID:    category,
		TrackQuantity: true,
		IsNew:         true,
	}
	s.Require().NoError(s.products.Create(s.ctx, product))
	return product
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

// ============================================================================
// Slugs
// ============================================================================

func (s *RepositoryTestSuite) TestCreateDerivesSlugWithoutSuffix() {
	category := s.createCategory("Eletrônicos & Games", nil)
	s.Equal("eletronicos-games", category.Slug)
}

func (s *RepositoryTestSuite) TestCreateSuffixesCollidingSlugs() {
	slugs := map[string]bool{}
	for i := 0; i < 4; i++ {
		category := s.createCategory("Shoes", nil)
		slugs[category.Slug] = true
	}
	s.Equal(map[string]bool{"shoes": true, "shoes-1": true, "shoes-2": true, "shoes-3": true}, slugs)
}

func (s *RepositoryTestSuite) TestCreateFillsSmallestFreeSuffix() {
	s.createCategory("Hats", nil)
	s.createCategory("Hats", nil)
	third := s.createCategory("Hats", nil)
	s.Require().Equal("hats-2", third.Slug)

	// hats-1 is freed by a soft delete and becomes reusable
	second, err := s.categories.GetBySlug(s.ctx, "hats-1")
	s.Require().NoError(err)
	s.Require().NoError(s.categories.Delete(s.ctx, second.ID))

	next := s.createCategory("Hats", nil)
	s.Equal("hats-1", next.Slug)
}

func (s *RepositoryTestSuite) TestCreateNormalizesExplicitSlug() {
	category := &models.Category{Name: "Anything", Slug: "My Custom Slug"}
	s.Require().NoError(s.categories.Create(s.ctx, category))
	s.Equal("my-custom-slug", category.Slug)

	again := &models.Category{Name: "Other", Slug: "my-custom-slug"}
	s.Require().NoError(s.categories.Create(s.ctx, again))
	s.Equal("my-custom-slug-1", again.Slug)
}

func (s *RepositoryTestSuite) TestCreateFallsBackToKindForEmptyNormalization() {
	category := s.createCategory("!!!", nil)
	s.Equal("category", category.Slug)
	product := s.createProduct("???", nil)
	s.Equal("product", product.Slug)
}

func (s *RepositoryTestSuite) TestUpdateNameKeepsUserSetSlug() {
	category := s.createCategory("Original", nil)
	updated, err := s.categories.Update(s.ctx, category.ID, &models.UpdateCategoryRequest{Name: strPtr("Renamed")})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)
	s.Equal("original", updated.Slug)
}

func (s *RepositoryTestSuite) TestUpdateClearedSlugIsDerivedFromName() {
	s.createCategory("Renamed", nil)
	category := s.createCategory("Original", nil)
	updated, err := s.categories.Update(s.ctx, category.ID, &models.UpdateCategoryRequest{
		Name: strPtr("Renamed"),
		Slug: strPtr(""),
	})
	s.Require().NoError(err)
	s.Equal("renamed-1", updated.Slug)
}

func (s *RepositoryTestSuite) TestUpdateRejectsTakenExplicitSlug() {
	s.createCategory("Taken", nil)
	category := s.createCategory("Mine", nil)
	_, err := s.categories.Update(s.ctx, category.ID, &models.UpdateCategoryRequest{Slug: strPtr("taken")})
	s.ErrorIs(err, ErrSlugTaken)

	// re-asserting its own slug is fine
	_, err = s.categories.Update(s.ctx, category.ID, &models.UpdateCategoryRequest{Slug: strPtr("mine")})
	s.NoError(err)
}

// takeSlugBeforeInsert makes the next rounds category inserts collide by
// inserting a live row with the resolved slug inside the same transaction.
// It returns the number of inserts attempted so far.
func (s *RepositoryTestSuite) takeSlugBeforeInsert(rounds int) *int {
	attempts := 0
	err := s.db.Callback().Create().Before("gorm:create").Register("test:take_slug", func(db *gorm.DB) {
		category, ok := db.Statement.Dest.(*models.Category)
		if !ok || category.Name == "Competitor" {
			return
		}
		attempts++
		if attempts > rounds {
			return
		}
		rival := &models.Category{Name: "Competitor", Slug: category.Slug}
		if err := db.Session(&gorm.Session{NewDB: true}).Create(rival).Error; err != nil {
			_ = db.AddError(err)
		}
	})
	s.Require().NoError(err)
	return &attempts
}

func (s *RepositoryTestSuite) TestCreateRetriesAfterConcurrentSlugInsert() {
	attempts := s.takeSlugBeforeInsert(1)

	category := s.createCategory("Shoes", nil)
	s.Equal(2, *attempts)
	s.Equal("shoes", category.Slug)

	var live int64
	s.Require().NoError(s.db.Model(&models.Category{}).Where("slug = ?", "shoes").Count(&live).Error)
	s.EqualValues(1, live)
}

func (s *RepositoryTestSuite) TestCreateGivesUpAfterRepeatedSlugConflicts() {
	attempts := s.takeSlugBeforeInsert(maxSlugAttempts)

	err := s.categories.Create(s.ctx, &models.Category{Name: "Shoes"})
	s.ErrorIs(err, ErrSlugConflict)
	s.Equal(maxSlugAttempts, *attempts)

	var total int64
	s.Require().NoError(s.db.Model(&models.Category{}).Count(&total).Error)
	s.Zero(total)
}

func (s *RepositoryTestSuite) TestCreateRejectsUnknownParent() {
	parent := uuid.New()
	err := s.categories.Create(s.ctx, &models.Category{Name: "Orphan", ParentID: &parent})
	s.ErrorIs(err, ErrParentNotFound)
}

// ============================================================================
// Tree
// ============================================================================

func (s *RepositoryTestSuite) buildTree() (root, mid, leaf, sibling *models.Category) {
	root = s.createCategory("Electronics", nil)
	mid = s.createCategory("Phones", &root.ID)
	leaf = s.createCategory("Android", &mid.ID)
	sibling = s.createCategory("Laptops", &root.ID)
	return
}

func (s *RepositoryTestSuite) TestAncestorsRootFirst() {
	root, mid, leaf, _ := s.buildTree()

	ancestors, err := s.categories.Ancestors(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Empty(ancestors)

	ancestors, err = s.categories.Ancestors(s.ctx, leaf.ID)
	s.Require().NoError(err)
	s.Require().Len(ancestors, 2)
	s.Equal(root.ID, ancestors[0].ID)
	s.Equal(mid.ID, ancestors[1].ID)
}

func (s *RepositoryTestSuite) TestDescendantIDsClosed() {
	root, mid, leaf, sibling := s.buildTree()
	deeper := s.createCategory("Pixel", &leaf.ID)

	ids, err := s.categories.DescendantIDs(s.ctx, root.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{mid.ID, leaf.ID, deeper.ID, sibling.ID}, ids)

	set := map[uuid.UUID]bool{}
	for _, id := range ids {
		s.False(set[id], "duplicate descendant %s", id)
		set[id] = true
	}
	for _, id := range ids {
		children, err := s.categories.Children(s.ctx, id)
		s.Require().NoError(err)
		for _, child := range children {
			s.True(set[child.ID])
		}
	}
}

func (s *RepositoryTestSuite) TestChildrenOrderedBySortOrderThenName() {
	root := s.createCategory("Root", nil)
	for _, c := range []struct {
		name  string
		order int
	}{{"Zeta", 0}, {"Alpha", 1}, {"Beta", 0}} {
		category := &models.Category{Name: c.name, ParentID: &root.ID, SortOrder: c.order}
		s.Require().NoError(s.categories.Create(s.ctx, category))
	}

	children, err := s.categories.Children(s.ctx, root.ID)
	s.Require().NoError(err)
	names := make([]string, len(children))
	for i, child := range children {
		names[i] = child.Name
	}
	s.Equal([]string{"Beta", "Zeta", "Alpha"}, names)
}

func (s *RepositoryTestSuite) TestReparentUnderDescendantRejected() {
	root, _, leaf, _ := s.buildTree()

	_, err := s.categories.Update(s.ctx, root.ID, &models.UpdateCategoryRequest{
		ParentID: models.OptionalUUID{Set: true, Valid: true, UUID: leaf.ID},
	})
	s.ErrorIs(err, ErrCategoryCycle)

	_, err = s.categories.Update(s.ctx, root.ID, &models.UpdateCategoryRequest{
		ParentID: models.OptionalUUID{Set: true, Valid: true, UUID: root.ID},
	})
	s.ErrorIs(err, ErrCategoryCycle)
}

func (s *RepositoryTestSuite) TestReparentToRootAndBack() {
	root, mid, _, sibling := s.buildTree()

	updated, err := s.categories.Update(s.ctx, mid.ID, &models.UpdateCategoryRequest{
		ParentID: models.OptionalUUID{Set: true},
	})
	s.Require().NoError(err)
	s.Nil(updated.ParentID)

	updated, err = s.categories.Update(s.ctx, mid.ID, &models.UpdateCategoryRequest{
		ParentID: models.OptionalUUID{Set: true, Valid: true, UUID: sibling.ID},
	})
	s.Require().NoError(err)
	s.Equal(sibling.ID, *updated.ParentID)

	ancestors, err := s.categories.Ancestors(s.ctx, mid.ID)
	s.Require().NoError(err)
	s.Require().Len(ancestors, 2)
	s.Equal(root.ID, ancestors[0].ID)
}

// ============================================================================
// Deletion policy
// ============================================================================

func (s *RepositoryTestSuite) TestSoftDeleteLeavesProductsAndChildren() {
	root, mid, _, _ := s.buildTree()
	product := s.createProduct("Phone", &root.ID)

	s.Require().NoError(s.categories.Delete(s.ctx, root.ID))

	_, err := s.categories.GetByID(s.ctx, root.ID)
	s.ErrorIs(err, ErrCategoryNotFound)
	state, err := s.categories.State(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal(models.LifecycleTrashed, state)

	reloaded, err := s.products.GetByID(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal(root.ID, *reloaded.CategoryID)

	child, err := s.categories.GetByID(s.ctx, mid.ID)
	s.Require().NoError(err)
	s.Equal(root.ID, *child.ParentID)
}

func (s *RepositoryTestSuite) TestForceDeleteDetachesEveryProduct() {
	root, mid, _, _ := s.buildTree()
	other := s.createCategory("Other", nil)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		ids = append(ids, s.createProduct(fmt.Sprintf("Product %d", i), &root.ID).ID)
	}
	trashed := s.createProduct("Trashed", &root.ID)
	_, err := s.products.Delete(s.ctx, trashed.ID)
	s.Require().NoError(err)
	untouched := s.createProduct("Untouched", &other.ID)

	detached, err := s.categories.ForceDelete(s.ctx, root.ID)
	s.Require().NoError(err)
	s.EqualValues(4, detached)

	count, err := s.products.CountByCategory(s.ctx, root.ID, models.WithTrashed)
	s.Require().NoError(err)
	s.Zero(count)
	for _, id := range append(ids, trashed.ID) {
		product, err := s.products.Find(s.ctx, id, models.WithTrashed)
		s.Require().NoError(err)
		s.Nil(product.CategoryID)
	}

	state, err := s.categories.State(s.ctx, root.ID)
	s.Require().NoError(err)
	s.Equal(models.LifecycleAbsent, state)

	// children are not cascaded and keep the dangling parent reference
	child, err := s.categories.GetByID(s.ctx, mid.ID)
	s.Require().NoError(err)
	s.Require().NotNil(child.ParentID)
	s.Equal(root.ID, *child.ParentID)

	kept, err := s.products.GetByID(s.ctx, untouched.ID)
	s.Require().NoError(err)
	s.Equal(other.ID, *kept.CategoryID)
}

func (s *RepositoryTestSuite) TestForceDeleteTrashedCategory() {
	category := s.createCategory("Gone", nil)
	s.Require().NoError(s.categories.Delete(s.ctx, category.ID))
	_, err := s.categories.ForceDelete(s.ctx, category.ID)
	s.NoError(err)
	_, err = s.categories.ForceDelete(s.ctx, category.ID)
	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *RepositoryTestSuite) TestRestoreRenegotiatesReusedSlug() {
	category := s.createCategory("Toys", nil)
	s.Require().NoError(s.categories.Delete(s.ctx, category.ID))
	replacement := s.createCategory("Toys", nil)
	s.Require().Equal("toys", replacement.Slug)

	restored, err := s.categories.Restore(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Equal("toys-1", restored.Slug)
	s.Equal(models.LifecycleActive, restored.Lifecycle())

	_, err = s.categories.Restore(s.ctx, category.ID)
	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *RepositoryTestSuite) TestListTrashedSelectors() {
	live := s.createCategory("Live", nil)
	gone := s.createCategory("Gone", nil)
	s.Require().NoError(s.categories.Delete(s.ctx, gone.ID))

	names := func(trashed models.Trashed) []string {
		list, _, err := s.categories.List(s.ctx, models.CategoryFilters{Trashed: trashed})
		s.Require().NoError(err)
		out := []string{}
		for _, c := range list {
			out = append(out, c.Name)
		}
		return out
	}
	s.Equal([]string{live.Name}, names(models.WithoutTrashed))
	s.Equal([]string{gone.Name, live.Name}, names(models.WithTrashed))
	s.Equal([]string{gone.Name}, names(models.OnlyTrashed))
}

// ============================================================================
// Counters and bulk operations
// ============================================================================

func (s *RepositoryTestSuite) TestProductsCountSync() {
	category := s.createCategory("Counted", nil)
	s.createProduct("One", &category.ID)
	s.createProduct("Two", &category.ID)
	trashed := s.createProduct("Three", &category.ID)
	_, err := s.products.Delete(s.ctx, trashed.ID)
	s.Require().NoError(err)

	count, err := s.categories.SyncProductsCount(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Require().NoError(s.categories.DecrementProductsCount(s.ctx, category.ID, 5))
	reloaded, err := s.categories.GetByID(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Zero(reloaded.ProductsCount)

	s.Require().NoError(s.categories.IncrementProductsCount(s.ctx, category.ID, 3))
	_, err = s.categories.SyncAllProductsCounts(s.ctx)
	s.Require().NoError(err)
	reloaded, err = s.categories.GetByID(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Equal(2, reloaded.ProductsCount)
}

func (s *RepositoryTestSuite) TestUpdateKeepsCounterWrittenDuringTransaction() {
	category := s.createCategory("Counted", nil)

	synced := false
	err := s.db.Callback().Update().Before("gorm:update").Register("test:sync_count", func(db *gorm.DB) {
		if _, ok := db.Statement.Dest.(*models.Category); !ok || synced {
			return
		}
		synced = true
		if err := db.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE categories SET products_count = ? WHERE id = ?", 7, category.ID).Error; err != nil {
			_ = db.AddError(err)
		}
	})
	s.Require().NoError(err)

	updated, err := s.categories.Update(s.ctx, category.ID, &models.UpdateCategoryRequest{Name: strPtr("Renamed")})
	s.Require().NoError(err)
	s.True(synced)
	s.Equal("Renamed", updated.Name)
	s.Equal(7, updated.ProductsCount)

	reloaded, err := s.categories.GetByID(s.ctx, category.ID)
	s.Require().NoError(err)
	s.Equal(7, reloaded.ProductsCount)
}

func (s *RepositoryTestSuite) TestBulkCreateContinuesAfterFailure() {
	missing := uuid.New()
	result := s.categories.BulkCreate(s.ctx, []*models.Category{
		{Name: "First"},
		{Name: "Broken", ParentID: &missing},
		{Name: "First"},
	})
	s.Equal(3, result.Total)
	s.Equal(2, result.Success)
	s.Require().Len(result.Errors, 1)
	s.Equal(1, result.Errors[0].Index)
	s.Equal("first-1", result.Created[1].Slug)
}

func (s *RepositoryTestSuite) TestBulkDeleteAndRestore() {
	a := s.createCategory("A", nil)
	b := s.createCategory("B", nil)
	unknown := uuid.New()

	result, err := s.categories.BulkDelete(s.ctx, []uuid.UUID{a.ID, b.ID, unknown}, false)
	s.Require().NoError(err)
	s.Equal(2, result.AffectedCount)
	s.Equal([]string{unknown.String()}, result.FailedIDs)

	result, err = s.categories.BulkRestore(s.ctx, []uuid.UUID{a.ID, b.ID})
	s.Require().NoError(err)
	s.Equal(2, result.AffectedCount)

	result, err = s.categories.BulkUpdateStatus(s.ctx, []uuid.UUID{a.ID, unknown}, models.CategoryStatusArchived)
	s.Require().NoError(err)
	s.Equal(1, result.AffectedCount)
	reloaded, err := s.categories.GetByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.CategoryStatusArchived, reloaded.Status)
}

// ============================================================================
// Products
// ============================================================================

func (s *RepositoryTestSuite) TestProductIdentifiersUnique() {
	first := &models.Product{Name: "First", Price: decimal.NewFromInt(1), SKU: strPtr("SKU-1"), Barcode: strPtr("789")}
	s.Require().NoError(s.products.Create(s.ctx, first))

	err := s.products.Create(s.ctx, &models.Product{Name: "Second", Price: decimal.NewFromInt(1), SKU: strPtr("SKU-1")})
	s.ErrorIs(err, ErrSKUTaken)
	err = s.products.Create(s.ctx, &models.Product{Name: "Third", Price: decimal.NewFromInt(1), Barcode: strPtr("789")})
	s.ErrorIs(err, ErrBarcodeTaken)

	// blank identifiers do not collide
	s.NoError(s.products.Create(s.ctx, &models.Product{Name: "Blank", Price: decimal.NewFromInt(1), SKU: strPtr("")}))
	s.NoError(s.products.Create(s.ctx, &models.Product{Name: "Blank", Price: decimal.NewFromInt(1), SKU: strPtr(" ")}))
}

func (s *RepositoryTestSuite) TestProductCategoryMustBeLive() {
	category := s.createCategory("Closed", nil)
	s.Require().NoError(s.categories.Delete(s.ctx, category.ID))
	err := s.products.Create(s.ctx, &models.Product{Name: "Nope", Price: decimal.NewFromInt(1), CategoryID: &category.ID})
	s.ErrorIs(err, ErrCategoryNotFound)
}

func (s *RepositoryTestSuite) TestProductListBySubtree() {
	root, mid, leaf, sibling := s.buildTree()
	s.createProduct("Root product", &root.ID)
	s.createProduct("Mid product", &mid.ID)
	s.createProduct("Leaf product", &leaf.ID)
	s.createProduct("Sibling product", &sibling.ID)
	s.createProduct("Loose product", nil)

	subtree, err := s.categories.SubtreeIDs(s.ctx, mid.ID)
	s.Require().NoError(err)
	products, total, err := s.products.List(s.ctx, models.ProductFilters{CategoryIDs: subtree})
	s.Require().NoError(err)
	s.EqualValues(2, total)
	s.Equal("Leaf product", products[0].Name)
	s.Equal("Mid product", products[1].Name)
	s.Require().NotNil(products[0].Category)
	s.Equal(leaf.ID, products[0].Category.ID)
}

func (s *RepositoryTestSuite) TestProductUpdateReportsPreviousCategory() {
	from := s.createCategory("From", nil)
	to := s.createCategory("To", nil)
	product := s.createProduct("Moving", &from.ID)

	updated, previous, err := s.products.Update(s.ctx, product.ID, &models.UpdateProductRequest{
		Name:       strPtr("Moved"),
		CategoryID: models.OptionalUUID{Set: true, Valid: true, UUID: to.ID},
	})
	s.Require().NoError(err)
	s.Equal(from.ID, *previous)
	s.Equal(to.ID, *updated.CategoryID)
	s.Equal("moving", updated.Slug)

	updated, _, err = s.products.Update(s.ctx, product.ID, &models.UpdateProductRequest{
		CategoryID: models.OptionalUUID{Set: true},
	})
	s.Require().NoError(err)
	s.Nil(updated.CategoryID)
}

func (s *RepositoryTestSuite) TestProductRestoreRenegotiatesSlug() {
	product := s.createProduct("Chair", nil)
	_, err := s.products.Delete(s.ctx, product.ID)
	s.Require().NoError(err)
	s.createProduct("Chair", nil)

	restored, err := s.products.Restore(s.ctx, product.ID)
	s.Require().NoError(err)
	s.Equal("chair-1", restored.Slug)
}

// ============================================================================
// Users, tokens and password resets
// ============================================================================

func newUser(email string) *models.User {
	return &models.User{Name: "Jane Doe", Email: email, Password: "secret-password", IsActive: true}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	user := newUser("jane@example.com")
	user.CPFCNPJ = strPtr("12345678901")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, "secret-password", user.Password)
	assert.True(t, CheckPassword(user.Password, "secret-password"))
	assert.False(t, CheckPassword(user.Password, "wrong"))

	assert.ErrorIs(t, repo.Create(ctx, newUser("jane@example.com")), ErrEmailTaken)

	other := newUser("john@example.com")
	other.CPFCNPJ = strPtr("12345678901")
	assert.ErrorIs(t, repo.Create(ctx, other), ErrCPFCNPJTaken)

	// profile updates ignore the user's own identifiers
	updated, err := repo.UpdateProfile(ctx, user.ID, &models.UpdateProfileRequest{
		Email:   strPtr("jane@example.com"),
		CPFCNPJ: strPtr("12345678901"),
		City:    strPtr("Recife"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Recife", *updated.City)

	require.NoError(t, repo.SetPassword(ctx, user.ID, "another-password"))
	reloaded, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, CheckPassword(reloaded.Password, "another-password"))
	assert.NotNil(t, reloaded.RememberToken)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db)
	tokens := NewTokenRepository(db)

	user := newUser("tokens@example.com")
	require.NoError(t, users.Create(ctx, user))

	first, err := tokens.Create(ctx, user.ID, "laptop", 0)
	require.NoError(t, err)
	assert.Nil(t, first.ExpiresAt)
	second, err := tokens.Create(ctx, user.ID, "phone", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, second.ExpiresAt)

	now := time.Now()
	authenticated, err := tokens.Authenticate(ctx, first.ID, user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authenticated.ID)

	_, err = tokens.Authenticate(ctx, first.ID, uuid.New(), now)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = tokens.Authenticate(ctx, second.ID, user.ID, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTokenNotFound)

	list, err := tokens.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].LastUsedAt)

	assert.ErrorIs(t, tokens.Revoke(ctx, uuid.New(), first.ID), ErrTokenNotFound)
	require.NoError(t, tokens.Revoke(ctx, user.ID, first.ID))
	_, err = tokens.Authenticate(ctx, first.ID, user.ID, now)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	for i := 0; i < 3; i++ {
		_, err := tokens.Create(ctx, user.ID, "device", 0)
		require.NoError(t, err)
	}
	revoked, err := tokens.RevokeAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, revoked)
}

func TestPasswordResetRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPasswordResetRepository(openTestDB(t), time.Hour, time.Minute)
	now := time.Now()

	token, err := repo.Issue(ctx, "reset@example.com", now)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = repo.Issue(ctx, "reset@example.com", now.Add(30*time.Second))
	assert.ErrorIs(t, err, ErrResetThrottled)

	fresh, err := repo.Issue(ctx, "reset@example.com", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)

	assert.ErrorIs(t, repo.Consume(ctx, "reset@example.com", token, now.Add(3*time.Minute)), ErrInvalidResetToken)
	assert.ErrorIs(t, repo.Consume(ctx, "other@example.com", fresh, now.Add(3*time.Minute)), ErrInvalidResetToken)
	require.NoError(t, repo.Consume(ctx, "reset@example.com", fresh, now.Add(3*time.Minute)))
	assert.ErrorIs(t, repo.Consume(ctx, "reset@example.com", fresh, now.Add(3*time.Minute)), ErrInvalidResetToken)

	expired, err := repo.Issue(ctx, "late@example.com", now)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Consume(ctx, "late@example.com", expired, now.Add(2*time.Hour)), ErrInvalidResetToken)
}
