package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/models"
)

// maxFeatured caps how many products can be pinned at once.
const maxFeatured = 4

type FeaturedHandler struct {
	DB *gorm.DB
}

func (h *FeaturedHandler) GetAllFeaturedProducts(c echo.Context) error {
	var pins []models.FeaturedProduct
	if err := h.DB.Order("id ASC").Find(&pins).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	ids := make([]uint, 0, len(pins))
	for _, pin := range pins {
		ids = append(ids, pin.ProductID)
	}

	var products []models.Product
	if len(ids) > 0 {
		if err := h.DB.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return apperr.Wrap(apperr.Upstream, "internal server error", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":          true,
		"featuredProducts": products,
	})
}

// CreateFeaturedProduct pins a product. Per-product uniqueness is enforced
// atomically by the unique index on product_id; the cap check is
// count-then-insert inside a transaction and can transiently race under
// concurrent admin writes.
func (h *FeaturedHandler) CreateFeaturedProduct(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid product id")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Product Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	pin := models.FeaturedProduct{ProductID: product.ID}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.FeaturedProduct{}).Count(&count).Error; err != nil {
			return err
		}
		if count >= maxFeatured {
			return apperr.New(apperr.Validation, "You can't add more than 4 featured products.")
		}

		var existing models.FeaturedProduct
		if err := tx.Where("product_id = ?", product.ID).First(&existing).Error; err == nil {
			return apperr.New(apperr.Conflict, "Product already exist")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(&pin).Error
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return ae
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":         true,
		"message":         "Featured product created",
		"featuredProduct": pin,
	})
}

func (h *FeaturedHandler) DeleteFeaturedProduct(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("productId"))
	if err != nil {
		return apperr.New(apperr.Validation, "invalid product id")
	}

	var pin models.FeaturedProduct
	if err := h.DB.Where("product_id = ?", productID).First(&pin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "Featured Product Not Found")
		}
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	if err := h.DB.Delete(&pin).Error; err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Featured product deleted",
	})
}
