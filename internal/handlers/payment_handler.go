package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jmwangi/cdj-storefront/internal/auth"
	"github.com/jmwangi/cdj-storefront/internal/models"
	"github.com/jmwangi/cdj-storefront/internal/mpesa"
	"github.com/jmwangi/cdj-storefront/internal/notifier"
	"github.com/jmwangi/cdj-storefront/internal/orders"
	"github.com/jmwangi/cdj-storefront/internal/payments"
)

type MakePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

// MakePayment initiates the STK push for an order. The order id comes from
// the request body, validated against the caller's ownership — there is no
// session-held "current order". The amount charged is the order's declared
// total, not a caller-supplied figure.
func MakePayment(gateway *mpesa.Client, lifecycle *orders.Manager, reconciler *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		cust := auth.CustomerFromContext(c)
		if cust == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		var req MakePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and phone are required", "code": "VALIDATION"})
			return
		}

		if _, err := mpesa.NormalizePhone(req.Phone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number", "code": "VALIDATION"})
			return
		}

		ctx := c.Request.Context()

		order, err := lifecycle.Get(ctx, req.OrderID)
		if err != nil {
			respondOrderError(c, err)
			return
		}
		if order.CustomerID != cust.ID && !cust.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "FORBIDDEN"})
			return
		}

		// Claim the order before touching the network. A concurrent attempt
		// for the same order loses here with a conflict and no push is sent.
		if err := lifecycle.MarkSubmitted(ctx, req.OrderID); err != nil {
			respondOrderError(c, err)
			return
		}

		push, err := gateway.BuildSTKPush(order.TotalAmount, req.Phone)
		if err != nil {
			releaseClaim(lifecycle, req.OrderID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number", "code": "VALIDATION"})
			return
		}

		outcome, err := gateway.Submit(ctx, push)
		if err != nil {
			releaseClaim(lifecycle, req.OrderID)
			switch {
			case errors.Is(err, mpesa.ErrGatewayAuth):
				log.Printf("Gateway auth failed for order %d: %v\n", req.OrderID, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway authentication failed", "code": "GATEWAY_AUTH"})
			default:
				log.Printf("Gateway unreachable for order %d: %v\n", req.OrderID, err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again later", "code": "GATEWAY_UNAVAILABLE"})
			}
			return
		}

		if !outcome.Accepted {
			if err := reconciler.RecordRejection(ctx, req.OrderID); err != nil {
				log.Printf("Failed to record rejection for order %d: %v\n", req.OrderID, err)
			}
			c.JSON(http.StatusPaymentRequired, gin.H{
				"message":      "Failed",
				"code":         "GATEWAY_REJECTED",
				"gateway_code": outcome.ResponseCode,
				"description":  outcome.ResponseDesc,
			})
			return
		}

		payment, err := reconciler.RecordAcceptance(ctx, req.OrderID, req.Phone, float64(push.Amount), outcome)
		if err != nil {
			// The push is already on the customer's phone; surface the
			// persistence failure rather than pretending nothing happened.
			log.Printf("Failed to persist payment attempt for order %d: %v\n", req.OrderID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record payment attempt"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":             "Successful",
			"code":                "PUSH_ACCEPTED",
			"payment_id":          payment.ID,
			"checkout_request_id": payment.CheckoutRequestID,
		})
	}
}

// releaseClaim uses a fresh context: the request context may already be
// cancelled, and the claim must still be released.
func releaseClaim(lifecycle *orders.Manager, orderID uint) {
	if err := lifecycle.ReleaseSubmission(context.Background(), orderID); err != nil {
		log.Printf("Failed to release payment claim on order %d: %v\n", orderID, err)
	}
}

// GET /payments (admin)
func ListPayments(reconciler *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := reconciler.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// PaymentCallback receives the gateway's settlement verdict. Replays of an
// already-settled reference are acknowledged without changes.
func PaymentCallback(reconciler *payments.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope mpesa.CallbackEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback payload", "code": "VALIDATION"})
			return
		}

		data := envelope.Body.StkCallback
		payment, err := reconciler.Settle(c.Request.Context(), data)
		if err != nil {
			if errors.Is(err, payments.ErrUnknownReference) {
				log.Printf("Settlement callback for unknown reference %s\n", data.CheckoutRequestID)
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown checkout request", "code": "ORDER_NOT_FOUND"})
				return
			}
			log.Printf("Failed to settle payment %s: %v\n", data.CheckoutRequestID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "settlement failed"})
			return
		}

		if payment.Status == models.PaymentStatusSuccess {
			go func(p models.Payment) {
				if err := notifier.SendPaymentReceiptSMS(p.Phone, p.OrderID, p.Amount, p.ReceiptNumber); err != nil {
					log.Printf("Failed to send receipt SMS for order %d to %s: %v\n", p.OrderID, p.Phone, err)
				}
			}(*payment)
		}

		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
	}
}
