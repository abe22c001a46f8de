package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/online-store/internal/models"
	"github.com/avolkov/online-store/internal/wishlist"
)

func TestAddToWishlistHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	product := env.createProduct(t, 3)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/users/"+user.ID.String()+"/wishlist",
		map[string]string{"product_id": product.ID.String()})
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())

	require.NoError(t, env.WL.AddToWishlist(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var item models.WishlistItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, product.ID, item.ProductID)

	// Saving the same product again answers 409.
	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/users/"+user.ID.String()+"/wishlist",
		map[string]string{"product_id": product.ID.String()})
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())

	require.NoError(t, env.WL.AddToWishlist(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetWishlistHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	product := env.createProduct(t, 0)

	_, err := env.WL.Svc.Add(testCtx(), user.ID, product.ID)
	require.NoError(t, err)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/users/"+user.ID.String()+"/wishlist", nil)
	c.SetParamNames("id")
	c.SetParamValues(user.ID.String())

	require.NoError(t, env.WL.GetWishlist(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var items []wishlist.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.True(t, items[0].ProductExists)
	require.True(t, items[0].ProductOutOfStock)
}

func TestRemoveFromWishlistHandler(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t)
	product := env.createProduct(t, 3)

	_, err := env.WL.Svc.Add(testCtx(), user.ID, product.ID)
	require.NoError(t, err)

	rec, c := env.doJSONRequest(http.MethodDelete,
		"/api/v1/users/"+user.ID.String()+"/wishlist/"+product.ID.String(), nil)
	c.SetParamNames("id", "productId")
	c.SetParamValues(user.ID.String(), product.ID.String())

	require.NoError(t, env.WL.RemoveFromWishlist(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, c = env.doJSONRequest(http.MethodDelete,
		"/api/v1/users/"+user.ID.String()+"/wishlist/"+uuid.NewString(), nil)
	c.SetParamNames("id", "productId")
	c.SetParamValues(user.ID.String(), uuid.NewString())

	require.NoError(t, env.WL.RemoveFromWishlist(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
