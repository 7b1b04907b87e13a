package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"woocart-bridge/internal/livecart"
	"woocart-bridge/internal/service/auth"
	cartsvc "woocart-bridge/internal/service/cart"
	"woocart-bridge/internal/service/session"
)

// cartIDPattern is the set of characters a session token may contain.
var cartIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type cartService interface {
	Get(ctx context.Context, token string) (*cartsvc.View, error)
	AddItem(ctx context.Context, token string, in livecart.AddInput) (*cartsvc.View, error)
	UpdateItem(ctx context.Context, token, key string, qty int) (*cartsvc.View, error)
	RemoveItem(ctx context.Context, token, key string) (*cartsvc.View, error)
	ApplyCoupon(ctx context.Context, token, code string) (*cartsvc.View, error)
	RemoveCoupon(ctx context.Context, token, code string) (*cartsvc.View, error)
}

type verifier interface {
	Verify(ctx context.Context, r *http.Request) (auth.Identity, error)
}

type handlers struct {
	cartSvc  cartService
	verifier verifier
	opts     Options
	logger   *log.Logger
}

func (h *handlers) render(view *cartsvc.View) sfCartEnvelope {
	return toSFCart(view.Cart, sfOptions{
		Currency:       view.Currency,
		CheckoutURL:    h.opts.CheckoutURL,
		DefaultCountry: h.opts.DefaultCountry,
		Now:            h.opts.Now(),
	})
}

func (h *handlers) getCart(c *gin.Context) {
	token := c.Param("cart_id")
	if !cartIDPattern.MatchString(token) {
		h.cartNotFound(c)
		return
	}
	view, err := h.cartSvc.Get(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, cartsvc.ErrCartNotFound) {
			h.cartNotFound(c)
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.render(view))
}

func (h *handlers) cartNotFound(c *gin.Context) {
	status := h.opts.CartNotFoundStatus
	if status == 0 {
		status = http.StatusNotFound
	}
	c.AbortWithStatusJSON(status, gin.H{"error": cartsvc.ErrCartNotFound.Error()})
}

// token returns the cart id from the path, or from the session cookie on
// routes without one.
func (h *handlers) token(c *gin.Context) (string, bool) {
	token := c.Param("cart_id")
	if token == "" {
		token = session.ResolveToken(c.GetHeader("Cookie"), h.opts.SessionCookiePrefix)
	}
	if !cartIDPattern.MatchString(token) {
		h.cartNotFound(c)
		return "", false
	}
	return token, true
}

func (h *handlers) respondMutation(c *gin.Context, message string, view *cartsvc.View, err error) {
	if err != nil {
		if errors.Is(err, cartsvc.ErrCartNotFound) {
			h.cartNotFound(c)
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "cart": h.render(view).Cart})
}

func (h *handlers) updateItem(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req itemQuantityRequest
	if err := bindRequest(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.cartSvc.UpdateItem(c.Request.Context(), token, strings.TrimSpace(req.ItemKey), req.Quantity.value())
	h.respondMutation(c, "updated successfully", view, err)
}

func (h *handlers) addItem(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req addItemRequest
	if err := bindRequest(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = req.Quantity.value()
	}
	view, err := h.cartSvc.AddItem(c.Request.Context(), token, livecart.AddInput{
		ProductID:   int64(req.ProductID.value()),
		VariationID: int64(req.VariationID.value()),
		Variation:   req.Variation,
		Quantity:    qty,
	})
	h.respondMutation(c, "added successfully", view, err)
}

func (h *handlers) removeItem(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req itemKeyRequest
	if err := bindRequest(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.cartSvc.RemoveItem(c.Request.Context(), token, strings.TrimSpace(req.ItemKey))
	h.respondMutation(c, "removed successfully", view, err)
}

func (h *handlers) applyCoupon(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req couponRequest
	if err := bindRequest(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.cartSvc.ApplyCoupon(c.Request.Context(), token, strings.TrimSpace(req.Code))
	h.respondMutation(c, "coupon applied", view, err)
}

func (h *handlers) removeCoupon(c *gin.Context) {
	token, ok := h.token(c)
	if !ok {
		return
	}
	var req couponRequest
	if err := bindRequest(c, &req); err != nil {
		h.writeError(c, err)
		return
	}
	view, err := h.cartSvc.RemoveCoupon(c.Request.Context(), token, strings.TrimSpace(req.Code))
	h.respondMutation(c, "coupon removed", view, err)
}

// createOrder is not implemented; orders are placed through the storefront
// checkout.
func (h *handlers) createOrder(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"error":       "order creation is handled by the store checkout",
		"checkoutUrl": h.opts.CheckoutURL,
	})
}

// checkoutRedirect sends shoppers landing on the checkout page to the
// external storefront. Checkout endpoints such as order-received are left
// alone.
func (h *handlers) checkoutRedirect(c *gin.Context) {
	if endpoint := strings.Trim(c.Param("endpoint"), "/"); endpoint != "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	token := session.ResolveToken(c.GetHeader("Cookie"), h.opts.SessionCookiePrefix)
	c.Redirect(http.StatusFound, session.RedirectURL(h.opts.ExternalCheckoutURL, c.Request.Host, token))
}

func defaultNow() time.Time {
	return time.Now()
}
