package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayscape/internal/infra/config"
	"stayscape/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	ListGuest(c *gin.Context)
	ListHosting(c *gin.Context)
	Cancel(c *gin.Context)
	BookedDates(c *gin.Context)
}

type ListingHTTP interface {
	Search(c *gin.Context)
	Map(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	UploadPhotos(c *gin.Context)
}

type ReviewsHTTP interface {
	Submit(c *gin.Context)
	Delete(c *gin.Context)
}

type WishlistHTTP interface {
	List(c *gin.Context)
	Toggle(c *gin.Context)
}

type UsersHTTP interface {
	Profile(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Listing        ListingHTTP
	Reviews        ReviewsHTTP
	Auth           AuthHTTP
	Wishlist       WishlistHTTP
	Users          UsersHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxPhotoMemory
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.AccessLog())
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/logout", h.Auth.Logout)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Listing != nil {
		api.GET("/listings", h.Listing.Search)
		api.GET("/listings/map", h.Listing.Map)
		api.GET("/listings/:id", h.Listing.Get)
		api.POST("/listings", h.Listing.Create)
		api.PUT("/listings/:id", h.Listing.Update)
		api.DELETE("/listings/:id", h.Listing.Delete)
		api.POST("/listings/:id/photos", h.Listing.UploadPhotos)
	}
	if h.Booking != nil {
		api.POST("/listings/:id/bookings", h.Booking.Create)
		api.GET("/listings/:id/booked-dates", h.Booking.BookedDates)
		api.GET("/bookings", h.Booking.ListGuest)
		api.GET("/bookings/hosting", h.Booking.ListHosting)
		api.DELETE("/bookings/:id", h.Booking.Cancel)
	}
	if h.Reviews != nil {
		api.POST("/listings/:id/reviews", h.Reviews.Submit)
		api.DELETE("/listings/:id/reviews/:reviewId", h.Reviews.Delete)
	}
	if h.Wishlist != nil {
		api.GET("/wishlist", h.Wishlist.List)
		api.POST("/wishlist/:id", h.Wishlist.Toggle)
	}
	if h.Users != nil {
		api.GET("/users/:id/profile", h.Users.Profile)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader, obs.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", obs.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
