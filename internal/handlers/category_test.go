package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/models"
)

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}

	rec, c := env.jsonContext(t, http.MethodPost, "/api/v1/categories", map[string]string{
		"title": "Shirts",
	})
	require.NoError(t, h.CreateCategory(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Titles are unique.
	_, c = env.jsonContext(t, http.MethodPost, "/api/v1/categories", map[string]string{
		"title": "Shirts",
	})
	err := h.CreateCategory(c)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.Conflict, ae.Kind)
	require.Equal(t, "Category already exist", ae.Message)
}

func TestUpdateCategory(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}
	category := env.createCategory(t, "Shirts")

	rec, c := env.jsonContext(t, http.MethodPut, "/api/v1/categories/1", map[string]string{
		"title": "T-Shirts",
	})
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(category.ID)))
	require.NoError(t, h.UpdateCategory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Category
	require.NoError(t, env.DB.First(&stored, category.ID).Error)
	require.Equal(t, "T-Shirts", stored.Title)
}

func TestDeleteCategoryNotFound(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}

	_, c := env.jsonContext(t, http.MethodDelete, "/api/v1/categories/7", nil)
	c.SetParamNames("id")
	c.SetParamValues("7")
	err := h.DeleteCategory(c)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.NotFound, ae.Kind)
	require.Equal(t, "Category Not Found", ae.Message)
}

func TestCategoryProductsFollowsProductCategory(t *testing.T) {
	env := newTestEnv(t)
	h := &CategoryHandler{DB: env.DB}
	shirts := env.createCategory(t, "Shirts")
	shoes := env.createCategory(t, "Shoes")
	product := env.createProduct(t, "Blue Shirt", 20, shirts.ID)
	env.createProduct(t, "Sneaker", 60, shoes.ID)

	listCategory := func(id uint) []models.Product {
		rec, c := env.jsonContext(t, http.MethodGet, "/api/v1/products-categories/1", nil)
		c.SetParamNames("id")
		c.SetParamValues(strconv.Itoa(int(id)))
		require.NoError(t, h.CategoryProducts(c))

		var body struct {
			Products []models.Product `json:"products"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Products
	}

	got := listCategory(shirts.ID)
	require.Len(t, got, 1)
	require.Equal(t, product.ID, got[0].ID)

	// Moving the product updates both listings at once.
	require.NoError(t, env.DB.Model(product).Update("category_id", shoes.ID).Error)
	require.Empty(t, listCategory(shirts.ID))
	require.Len(t, listCategory(shoes.ID), 2)
}
