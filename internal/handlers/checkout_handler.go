package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/checkout"
	"github.com/akylbek/payment-system/checkout-gateway/internal/interpreter"
	"github.com/akylbek/payment-system/checkout-gateway/internal/middleware"
	"github.com/akylbek/payment-system/checkout-gateway/internal/render"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

// LastOrderCookie carries the increment id of the customer's last placed
// order. It is the key for cart restoration.
const LastOrderCookie = "lastOrderID"

type CheckoutHandler struct {
	controller *checkout.Controller
}

func NewCheckoutHandler(controller *checkout.Controller) *CheckoutHandler {
	return &CheckoutHandler{controller: controller}
}

// Process serves GET and POST on the payment return endpoint.
func (h *CheckoutHandler) Process(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}

	var fields map[string]string
	if c.Request.Method == http.MethodPost {
		if err := c.Request.ParseForm(); err != nil {
			telemetry.Logger.Warn("Failed to parse payment form", zap.Error(err))
		}
		fields = interpreter.FromValues(c.Request.PostForm)
	}

	lastOrderID, _ := c.Cookie(LastOrderCookie)

	resp := h.controller.Handle(c.Request.Context(), checkout.Request{
		Method:      c.Request.Method,
		Fields:      fields,
		LastOrderID: lastOrderID,
		UserAgent:   c.Request.UserAgent(),
		Caller:      render.CallerKindOf(c.Request.Header),
		Session:     sess,
		Messages:    sess,
		ThreeDS:     sess,
	})

	write(c, resp)
}

// Messages returns and clears the customer's pending notices.
func (h *CheckoutHandler) Messages(c *gin.Context) {
	sess := middleware.SessionFrom(c)
	if sess == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}

	messages, err := sess.PopMessages(c.Request.Context())
	if err != nil {
		telemetry.Logger.Error("Failed to load session messages",
			zap.String("session_id", sess.ID()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func write(c *gin.Context, resp render.Response) {
	c.Header("Cache-Control", "no-store")
	if resp.Location != "" {
		c.Redirect(resp.Status, resp.Location)
		return
	}
	c.Data(resp.Status, resp.ContentType, []byte(resp.Body))
}
