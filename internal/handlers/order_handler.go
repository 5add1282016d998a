package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/cdj-storefront/internal/auth"
	"github.com/jmwangi/cdj-storefront/internal/models"
	"github.com/jmwangi/cdj-storefront/internal/notifier"
	"github.com/jmwangi/cdj-storefront/internal/orders"
)

type CreateOrderRequest struct {
	Name   string   `json:"name"`
	County string   `json:"county"`
	Street string   `json:"street"`
	Amount *float64 `json:"amount"`
}

func CreateOrder(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := auth.CustomerFromContext(c)
		if cust == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "VALIDATION"})
			return
		}

		if req.Amount == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount not provided", "code": "VALIDATION"})
			return
		}

		order, err := manager.Create(c.Request.Context(), cust.ID, req.Name, req.County, req.Street, *req.Amount)
		if err != nil {
			if errors.Is(err, orders.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive value", "code": "INVALID_AMOUNT"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		go func(customer models.Customer, order models.Order) {
			if err := notifier.SendOrderConfirmationEmail(customer.Email, customer.Firstname, order.ID, order.TotalAmount); err != nil {
				log.Printf("Failed to send confirmation email for order %d to %s: %v\n", order.ID, customer.Email, err)
			}
		}(*cust, *order)

		c.JSON(http.StatusCreated, gin.H{
			"id":           order.ID,
			"user_id":      order.CustomerID,
			"total_amount": order.TotalAmount,
		})
	}
}

func ListOrders(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := auth.CustomerFromContext(c)
		if cust == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		list, err := manager.ListByCustomer(c.Request.Context(), cust.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

func GetOrder(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := auth.CustomerFromContext(c)
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		order, err := manager.Get(c.Request.Context(), orderID)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		if order.CustomerID != cust.ID && !cust.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// PATCH /orders/:id — delivery fields only. Status and amount are never
// updatable through here.
func UpdateOrder(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := auth.CustomerFromContext(c)
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		order, err := manager.Get(c.Request.Context(), orderID)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		if order.CustomerID != cust.ID && !cust.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
			return
		}

		var upd orders.Update
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "VALIDATION"})
			return
		}

		updated, err := manager.Update(c.Request.Context(), orderID, upd)
		if err != nil {
			respondOrderError(c, err)
			return
		}

		c.JSON(http.StatusOK, updated)
	}
}

func DeleteOrder(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		if err := manager.Delete(c.Request.Context(), orderID); err != nil {
			respondOrderError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Data deleted"})
	}
}

// POST /orders/:id/cancel — explicit administrative override, distinct from
// the partial update surface.
func CancelOrder(manager *orders.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		if err := manager.Cancel(c.Request.Context(), orderID); err != nil {
			respondOrderError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "order cancelled"})
	}
}

func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id", "code": "VALIDATION"})
		return 0, false
	}
	return uint(id), true
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found", "code": "ORDER_NOT_FOUND"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "order is not in a state that allows this", "code": "ORDER_CONFLICT"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
