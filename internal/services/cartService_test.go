package services

import (
	"context"
	"math"
	"testing"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCartService_AddItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)
	p1 := env.newProduct(t, "P1", 10, 5)
	p2 := env.newProduct(t, "P2", 5, 5)

	t.Run("new product appends a line", func(t *testing.T) {
		cart, err := env.cart.AddItem(ctx, actor, actor.UserID, p1.ID.Hex(), 2)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 2, cart.Items[0].Quantity)

		cart, err = env.cart.AddItem(ctx, actor, actor.UserID, p2.ID.Hex(), 1)
		require.NoError(t, err)
		assert.Len(t, cart.Items, 2)
	})

	t.Run("known product increments quantity", func(t *testing.T) {
		cart, err := env.cart.AddItem(ctx, actor, actor.UserID, p1.ID.Hex(), 3)
		require.NoError(t, err)
		require.Len(t, cart.Items, 2)
		assert.Equal(t, 5, cart.Items[0].Quantity)
		assert.Equal(t, 55.0, cart.Total)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		for _, q := range []int{0, -1} {
			_, err := env.cart.AddItem(ctx, actor, actor.UserID, p1.ID.Hex(), q)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		}
	})

	t.Run("rejects malformed product id", func(t *testing.T) {
		_, err := env.cart.AddItem(ctx, actor, actor.UserID, "not-an-id", 1)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})
}

func TestCartService_AddItemUnknownProductLeavesCartUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)

	_, err := env.cart.AddItem(ctx, actor, actor.UserID, primitive.NewObjectID().Hex(), 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = env.cart.GetCart(ctx, actor, actor.UserID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "no cart should have been created")
}

func TestCartService_GetCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)

	_, err := env.cart.GetCart(ctx, actor, actor.UserID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	created, err := env.cart.EnsureCart(ctx, actor, actor.UserID)
	require.NoError(t, err)
	assert.Empty(t, created.Items)

	again, err := env.cart.EnsureCart(ctx, actor, actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	got, err := env.cart.GetCart(ctx, actor, actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestCartService_GetCartShowsDeletedProductAsNil(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)
	p := env.newProduct(t, "gone", 3, 1)
	kept := env.newProduct(t, "kept", 4, 1)

	_, err := env.cart.AddItem(ctx, actor, actor.UserID, p.ID.Hex(), 1)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, actor, actor.UserID, kept.ID.Hex(), 2)
	require.NoError(t, err)
	require.NoError(t, env.catalog.DeleteProduct(ctx, p.ID.Hex()))

	cart, err := env.cart.GetCart(ctx, actor, actor.UserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Nil(t, cart.Items[0].Product)
	require.NotNil(t, cart.Items[1].Product)
	assert.Equal(t, "kept", cart.Items[1].Product.Name)
	assert.Equal(t, 8.0, cart.Total)
}

func TestCartService_UpdateAndRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)
	p := env.newProduct(t, "P", 2, 10)

	missingItem := primitive.NewObjectID().Hex()
	_, err := env.cart.UpdateItemQuantity(ctx, actor, actor.UserID, missingItem, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "missing cart")

	cart, err := env.cart.AddItem(ctx, actor, actor.UserID, p.ID.Hex(), 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID.Hex()

	_, err = env.cart.UpdateItemQuantity(ctx, actor, actor.UserID, missingItem, 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "missing line")

	_, err = env.cart.UpdateItemQuantity(ctx, actor, actor.UserID, itemID, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	cart, err = env.cart.UpdateItemQuantity(ctx, actor, actor.UserID, itemID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Items[0].Quantity)

	_, err = env.cart.RemoveItem(ctx, actor, actor.UserID, missingItem)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	cart, err = env.cart.RemoveItem(ctx, actor, actor.UserID, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartService_OwnershipChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, owner := env.newUser(t, models.RoleCustomer)
	_, other := env.newUser(t, models.RoleCustomer)
	_, admin := env.newUser(t, models.RoleAdmin)
	p := env.newProduct(t, "P", 2, 10)

	_, err := env.cart.AddItem(ctx, owner, owner.UserID, p.ID.Hex(), 1)
	require.NoError(t, err)

	_, err = env.cart.GetCart(ctx, other, owner.UserID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = env.cart.AddItem(ctx, other, owner.UserID, p.ID.Hex(), 1)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	cart, err := env.cart.GetCart(ctx, admin, owner.UserID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_RepeatedAddsCannotOverflowALine(t *testing.T) {
	env := newTestEnv(t)
	env.allowNotifications()
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)
	p := env.newProduct(t, "P", 10, 5)

	_, err := env.cart.AddItem(ctx, actor, actor.UserID, p.ID.Hex(), math.MaxInt)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.cart.AddItem(ctx, actor, actor.UserID, p.ID.Hex(), models.MaxLineQuantity)
	require.NoError(t, err)
	_, err = env.cart.AddItem(ctx, actor, actor.UserID, p.ID.Hex(), 2)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	cart, err := env.cart.GetCart(ctx, actor, actor.UserID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, models.MaxLineQuantity, cart.Items[0].Quantity)

	// Checkout still refuses the line against the real stock and leaves stock alone.
	_, err = env.order.CreateOrderFromCart(ctx, actor)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 5, env.stockOf(t, p.ID))
}
