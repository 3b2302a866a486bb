package cart

import (
	"context"
	"testing"

	"github.com/shopd/shopd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) *MongoRepository {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, MongoConfig{URI: uri, Database: "testdb", MaxPoolSize: 10, MinPoolSize: 1})
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))

	return repo
}

func TestMongoGetCart_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	cart, err := repo.GetCart(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestMongoAddItem_NewCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	err := repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 3})
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), cart.Items[0].ProductID)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestMongoAddItem_ExistingItem_AddsQuantities(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 5}))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestMongoAddItem_SecondProduct_AppendsLine(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 1}))
	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 2, Quantity: 4}))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestMongoUpdateItemQuantity(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.UpdateItemQuantity(ctx, userID, 1, 9))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 9, cart.Items[0].Quantity)
}

func TestMongoUpdateItemQuantity_NotInCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2}))

	err := repo.UpdateItemQuantity(ctx, userID, 2, 1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestMongoRemoveItem(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 2, Quantity: 1}))
	require.NoError(t, repo.RemoveItem(ctx, userID, 1))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
}

func TestMongoClearCart_EmptiesButKeepsCart(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	userID := "user123"

	require.NoError(t, repo.AddItem(ctx, userID, domain.CartItem{ProductID: 1, Quantity: 2}))
	require.NoError(t, repo.ClearCart(ctx, userID))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestMongoClearCart_Absent_IsNoOp(t *testing.T) {
	repo := setupTestDB(t)

	assert.NoError(t, repo.ClearCart(context.Background(), "nonexistent"))
}
