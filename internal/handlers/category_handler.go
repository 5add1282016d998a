package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/cdj-storefront/internal/db"
	"github.com/jmwangi/cdj-storefront/internal/models"
)

// GET /topcategory
func GetTopCategories(c *gin.Context) {
	var categories []models.TopCategory

	if err := db.DB.Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, categories)
}

// GET /featuredbrands
func GetFeaturedBrands(c *gin.Context) {
	var brands []models.FeaturedBrand

	if err := db.DB.Find(&brands).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, brands)
}
