package main

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"urbanharvest/internal/handlers"
	"urbanharvest/internal/metrics"
	"urbanharvest/internal/middleware"
)

type routerConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	CORSOrigins    []string
	AuthLimiter    *middleware.RateLimiter
}

func newRouter(db *mongo.Database, cfg routerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), metrics.Instrument())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	secret := cfg.JWTSecret

	auth := r.Group("/auth")
	{
		auth.POST("/login", cfg.AuthLimiter.Handler(), handlers.Login(db, secret, cfg.AccessTokenTTL))
		auth.POST("/signup", cfg.AuthLimiter.Handler(), handlers.Signup(db))
		auth.GET("/me", middleware.UserAuth(secret), handlers.GetMe(db))
	}

	r.GET("/metrics", metrics.Handler())

	r.GET("/categories", handlers.GetCategories(db))
	r.GET("/products", handlers.GetProducts(db))
	r.GET("/products/:id", handlers.GetProduct(db))
	r.GET("/products/:id/reviews", handlers.ListReviews(db))
	r.POST("/products/:id/reviews", middleware.UserAuth(secret), handlers.CreateReview(db))
	r.PUT("/reviews/:id", middleware.UserAuth(secret), handlers.UpdateReview(db))
	r.DELETE("/reviews/:id", middleware.UserAuth(secret), handlers.DeleteReview(db))

	r.POST("/orders", middleware.UserAuth(secret), handlers.CreateOrder(db))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(secret))
	{
		user.GET("/orders", handlers.GetUserOrders(db))
		user.GET("/events", handlers.GetUserEvents(db))
		user.GET("/workshops", handlers.GetUserWorkshops(db))
		user.GET("/subscriptions", handlers.GetUserSubscriptions(db))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth(secret))
	{
		admin.DELETE("/reviews/:id", handlers.AdminDeleteReview(db))
	}

	return r
}
