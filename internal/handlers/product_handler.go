package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/cdj-storefront/internal/db"
	"github.com/jmwangi/cdj-storefront/internal/models"
)

type CreateProductRequest struct {
	Name     string  `json:"name" binding:"required"`
	Imageurl string  `json:"imageurl"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Category string  `json:"category" binding:"required"`
	Details  string  `json:"details"`
	Weight   string  `json:"weight"`
}

// POST /products (admin)
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION"})
		return
	}

	product := models.Product{
		Name:     req.Name,
		Imageurl: req.Imageurl,
		Price:    req.Price,
		Category: req.Category,
		Details:  req.Details,
		Weight:   req.Weight,
	}

	if err := db.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GET /products
func GetProducts(c *gin.Context) {
	var products []models.Product

	if err := db.DB.Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// GET /products/:id
func GetProductByID(c *gin.Context) {
	var product models.Product

	if err := db.DB.First(&product, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "code": "NOT_FOUND"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// GET /category?category=X
func GetProductsByCategory(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required", "code": "VALIDATION"})
		return
	}

	var products []models.Product
	if err := db.DB.Where("category = ?", category).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}
