package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/util"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func (h *CategoryHandler) GetAllCategories(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	offset, limit := util.Paginate(page)

	var total int64
	if err := h.DB.Model(&models.Category{}).Count(&total).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	var categories []models.Category
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&categories).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"totalPages": util.TotalPages(total),
		"categories": categories,
	})
}

func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Title == "" {
		return apperr.New(apperr.Validation, "Title is required")
	}

	var existing models.Category
	if err := h.DB.Where("title = ?", req.Title).First(&existing).Error; err == nil {
		return apperr.New(apperr.Conflict, "Category already exist")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	category := models.Category{Title: req.Title}
	if err := h.DB.Create(&category).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":  true,
		"message":  "Category created successfully",
		"category": category,
	})
}

func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.New(apperr.Validation, "invalid body")
	}
	if req.Title == "" {
		return apperr.New(apperr.Validation, "Title is required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid category id")
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Category Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.DB.Model(&category).Update("title", req.Title).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Category updated successfully",
	})
}

func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid category id")
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Category Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.DB.Delete(&category).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Category deleted successfully",
	})
}

// CategoryProducts lists the members of one category. Membership lives on
// Product.CategoryID, so the listing is always consistent with the product's
// own category field.
func (h *CategoryHandler) CategoryProducts(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid category id")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	offset, limit := util.Paginate(page)

	var total int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", id).Count(&total).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	var products []models.Product
	if err := h.DB.Where("category_id = ?", id).Order("id ASC").
		Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"totalPages": util.TotalPages(total),
		"products":   products,
	})
}
