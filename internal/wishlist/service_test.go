package wishlist

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avolkov/online-store/internal/models"
)

func newTestService(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.WishlistItem{}))
	return &Service{DB: db}
}

func createUser(t *testing.T, db *gorm.DB) models.User {
	u := models.User{Name: "test_user", Email: uuid.NewString() + "@example.com"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createProduct(t *testing.T, db *gorm.DB, count int) models.Product {
	p := models.Product{Name: "test_product", Price: 15, Image: "img.png", CountInStock: count}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestAdd(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)
	product := createProduct(t, svc.DB, 3)

	item, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)
	require.Equal(t, product.ID, item.ProductID)
	require.Equal(t, product.Name, item.ProductName)
	require.Equal(t, product.Price, item.ProductPrice)
}

func TestAddDuplicate(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)
	product := createProduct(t, svc.DB, 3)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), user.ID, product.ID)
	require.ErrorIs(t, err, ErrConflict)

	var count int64
	require.NoError(t, svc.DB.Model(&models.WishlistItem{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddSameProductTwoUsers(t *testing.T) {
	svc := newTestService(t)
	first := createUser(t, svc.DB)
	second := createUser(t, svc.DB)
	product := createProduct(t, svc.DB, 3)

	_, err := svc.Add(context.Background(), first.ID, product.ID)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), second.ID, product.ID)
	require.NoError(t, err)
}

func TestAddUnknownProduct(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)

	_, err := svc.Add(context.Background(), user.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddUnknownUser(t *testing.T) {
	svc := newTestService(t)
	product := createProduct(t, svc.DB, 3)

	_, err := svc.Add(context.Background(), uuid.New(), product.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddMissingProductID(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)

	_, err := svc.Add(context.Background(), user.ID, uuid.Nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestList(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)
	inStock := createProduct(t, svc.DB, 3)
	soldOut := createProduct(t, svc.DB, 0)

	_, err := svc.Add(context.Background(), user.ID, inStock.ID)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), user.ID, soldOut.ID)
	require.NoError(t, err)

	items, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, inStock.ID, items[0].ProductID)
	require.True(t, items[0].ProductExists)
	require.False(t, items[0].ProductOutOfStock)

	require.Equal(t, soldOut.ID, items[1].ProductID)
	require.True(t, items[1].ProductExists)
	require.True(t, items[1].ProductOutOfStock)
}

func TestListDeletedProductKeepsSnapshot(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)
	product := createProduct(t, svc.DB, 3)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DB.Delete(&models.Product{}, "id = ?", product.ID).Error)

	items, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].ProductExists)
	require.False(t, items[0].ProductOutOfStock)
	require.Equal(t, product.Name, items[0].ProductName)
}

func TestRemove(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)
	product := createProduct(t, svc.DB, 3)

	_, err := svc.Add(context.Background(), user.ID, product.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), user.ID, product.ID))

	items, err := svc.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Empty(t, items)

	require.ErrorIs(t, svc.Remove(context.Background(), user.ID, product.ID), ErrNotFound)
}

func TestRemoveNotOnWishlist(t *testing.T) {
	svc := newTestService(t)
	user := createUser(t, svc.DB)

	require.ErrorIs(t, svc.Remove(context.Background(), user.ID, uuid.New()), ErrNotFound)
}
