package auth

import (
	"errors"
	"net/http"
	"unicode"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jmwangi/cdj-storefront/internal/db"
	"github.com/jmwangi/cdj-storefront/internal/models"
)

const sessionUserKey = "user_id"

type RegisterRequest struct {
	Firstname string `json:"firstname" binding:"required"`
	Lastname  string `json:"lastname" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /register
func Register(c *gin.Context) {
	var req RegisterRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION"})
		return
	}

	if msg := validatePassword(req.Password); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "VALIDATION"})
		return
	}

	var existing models.Customer
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists", "code": "VALIDATION"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	customer := models.Customer{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Phone:        req.Phone,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := db.DB.Create(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, customer)
}

// POST /login
func Login(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION"})
		return
	}

	var customer models.Customer
	if err := db.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionUserKey, customer.ID)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       customer.ID,
		"name":     customer.Firstname,
		"email":    customer.Email,
		"is_admin": customer.IsAdmin,
	})
}

// DELETE /logout
func Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Delete(sessionUserKey)
	_ = sess.Save()

	c.JSON(http.StatusOK, gin.H{"message": "You have been logged out"})
}

// PUT /resetpassword
func ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION"})
		return
	}

	if msg := validatePassword(req.Password); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "VALIDATION"})
		return
	}

	var customer models.Customer
	if err := db.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "email not found", "code": "VALIDATION"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	if err := db.DB.Model(&customer).Update("password_hash", string(hash)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password successfully changed"})
}

// GET /user
func CurrentUser(c *gin.Context) {
	sess := sessions.Default(c)
	custID, ok := sess.Get(sessionUserKey).(uint)
	if !ok || custID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
		return
	}

	var customer models.Customer
	if err := db.DB.First(&customer, custID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found", "code": "UNAUTHORIZED"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    customer.ID,
		"name":  customer.Firstname,
		"email": customer.Email,
	})
}

// Middleware: ensures user is logged in and injects *models.Customer into context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		custID, ok := sess.Get(sessionUserKey).(uint)
		if !ok || custID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		var cust models.Customer
		if err := db.DB.First(&cust, custID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found", "code": "UNAUTHORIZED"})
			return
		}
		c.Set("customer", &cust)
		c.Next()
	}
}

// Middleware: admin-only routes. Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := CustomerFromContext(c)
		if cust == nil || !cust.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
			return
		}
		c.Next()
	}
}

func CustomerFromContext(c *gin.Context) *models.Customer {
	v, ok := c.Get("customer")
	if !ok {
		return nil
	}
	cust, _ := v.(*models.Customer)
	return cust
}

func validatePassword(password string) string {
	if len(password) < 8 {
		return "Password length must be greater or equal to 8 characters"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return "Password must have at least one uppercase letter"
	}
	if !hasLower {
		return "Password must have at least one lowercase letter"
	}
	if !hasDigit {
		return "Password must have at least one numeric digit"
	}
	return ""
}
