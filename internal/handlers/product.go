package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/logging"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/mykafka"
	"github.com/easybuy/backend/internal/service/search"
	"github.com/easybuy/backend/internal/storage"
	"github.com/easybuy/backend/internal/util"
)

const posterFolder = "easybuy/products"

type ProductHandler struct {
	DB       *gorm.DB
	Storage  storage.Storage
	Search   *search.Service
	Producer *mykafka.Producer
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	offset, limit := util.Paginate(page)

	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	var products []models.Product
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"totalPages": util.TotalPages(total),
		"products":   products,
	})
}

func (h *ProductHandler) GetSingleProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Product Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"product": product,
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_create")

	title := c.FormValue("title")
	description := c.FormValue("description")
	price, priceErr := strconv.ParseFloat(c.FormValue("price"), 64)
	inStock, stockErr := strconv.Atoi(c.FormValue("inStock"))
	file, fileErr := c.FormFile("file")
	if title == "" || description == "" || priceErr != nil || stockErr != nil || fileErr != nil {
		return apperr.New(apperr.Validation, "All fields are required")
	}

	categoryID, err := strconv.Atoi(c.FormValue("category"))
	if err != nil {
		return apperr.New(apperr.Validation, "Category is required")
	}
	var category models.Category
	if err := h.DB.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Category Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	src, err := file.Open()
	if err != nil {
		return apperr.Wrap(apperr.Validation, "cannot read uploaded file", err)
	}
	defer src.Close()

	poster, err := h.Storage.Upload(ctx, posterFolder, file.Filename, src)
	if err != nil {
		l.Error("product_create_failed", "status", 500, "reason", "poster_upload", "error", err)
		return apperr.Wrap(apperr.Upstream, "could not store poster", err)
	}

	product := models.Product{
		Title:       title,
		Description: description,
		Price:       price,
		InStock:     uint(inStock),
		PosterKey:   poster.Key,
		PosterURL:   poster.URL,
		CategoryID:  category.ID,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.Search.IndexProduct(ctx, &product); err != nil {
		l.Warn("product_index_failed", "product_id", product.ID, "error", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": product.ID,
		"title":     product.Title,
	})

	l.Info("product_created", "status", 201, "product_id", product.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Product created successfully",
		"product": product,
	})
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid product id")
	}

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Price       *float64 `json:"price"`
		InStock     *uint    `json:"inStock"`
		Category    *uint    `json:"category"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Product Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if req.Title != "" {
		product.Title = req.Title
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	if req.Category != nil {
		var category models.Category
		if err := h.DB.First(&category, *req.Category).Error; err == nil {
			product.CategoryID = category.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.Upstream, "internal server error", err)
		}
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.Search.IndexProduct(ctx, &product); err != nil {
		l.Warn("product_index_failed", "product_id", product.ID, "error", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": product.ID,
		"title":     product.Title,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product updated successfully",
		"product": product,
	})
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Product Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.Storage.Destroy(ctx, product.PosterKey); err != nil {
		l.Warn("poster_cleanup_failed", "key", product.PosterKey, "error", err)
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.FeaturedProduct{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	}); err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.Search.DeleteProduct(ctx, product.ID); err != nil {
		l.Warn("product_deindex_failed", "product_id", product.ID, "error", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": product.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Product deleted successfully",
	})
}

func (h *ProductHandler) SearchProducts(c echo.Context) error {
	query := c.QueryParam("search")
	if query == "" {
		return apperr.New(apperr.Validation, "Search is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	offset, limit := util.Paginate(page)

	total, products, err := h.Search.SearchTitle(c.Request().Context(), query, offset, limit)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "search is unavailable", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"totalPages": util.TotalPages(total),
		"products":   products,
	})
}
