package httpserver

import (
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"woocart-bridge/internal/livecart"
)

// Deps are the collaborators the router needs.
type Deps struct {
	CartSvc  cartService
	Verifier verifier
	// Catalog backs the per-request live cart.
	Catalog livecart.Catalog
}

// Options carries the routing and rendering settings.
type Options struct {
	APIPrefix           string
	SessionCookiePrefix string
	CheckoutPath        string
	CheckoutURL         string
	ExternalCheckoutURL string
	DefaultCountry      string
	CartNotFoundStatus  int
	CORSAllowedOrigins  []string
	Now                 func() time.Time
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) *gin.Engine {
	if opts.Now == nil {
		opts.Now = defaultNow
	}
	if opts.SessionCookiePrefix == "" {
		opts.SessionCookiePrefix = "wp_woocommerce_session_"
	}
	h := &handlers{cartSvc: deps.CartSvc, verifier: deps.Verifier, opts: opts, logger: logger}

	router := gin.New()
	router.Use(requestIDMiddleware(), gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(opts.CORSAllowedOrigins) > 0 {
		cfg := cors.DefaultConfig()
		cfg.AllowOrigins = opts.CORSAllowedOrigins
		cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", requestIDHeader)
		cfg.ExposeHeaders = []string{requestIDHeader}
		router.Use(cors.New(cfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	if opts.CheckoutPath != "" {
		base := "/" + strings.Trim(opts.CheckoutPath, "/")
		router.GET(base, h.checkoutRedirect)
		router.GET(base+"/*endpoint", h.checkoutRedirect)
	}

	api := router.Group(strings.TrimSuffix(opts.APIPrefix, "/"))
	api.Use(h.authMiddleware(), liveCartMiddleware(deps.Catalog))
	api.GET("/cart/:cart_id", h.getCart)
	api.POST("/cart/update", h.updateItem)
	api.POST("/cart/:cart_id/update", h.updateItem)
	api.POST("/cart/:cart_id/add", h.addItem)
	api.POST("/cart/:cart_id/remove", h.removeItem)
	api.POST("/cart/:cart_id/coupon", h.applyCoupon)
	api.DELETE("/cart/:cart_id/coupon", h.removeCoupon)
	api.POST("/order", h.createOrder)

	return router
}
