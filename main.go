package main

import (
	"context"
	"log"
	"time"

	"urbanharvest/internal/config"
	"urbanharvest/internal/database"
	"urbanharvest/internal/middleware"
)

func main() {
	config.Load()

	if config.AppEnv.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureHistoryIndexes(db); err != nil {
		log.Printf("⚠️ history index warning: %v", err)
	}
	if err := database.EnsureReviewIndexes(db); err != nil {
		log.Printf("⚠️ review index warning: %v", err)
	}

	authLimiter := middleware.NewRateLimiter(config.AppEnv.LoginRatePerSec, config.AppEnv.LoginRateBurst)
	authLimiter.StartCleanup(context.Background(), time.Minute)

	r := newRouter(db, routerConfig{
		JWTSecret:      config.AppEnv.JWTSecret,
		AccessTokenTTL: config.AppEnv.AccessTokenTTL,
		CORSOrigins:    config.AppEnv.CORSOrigins,
		AuthLimiter:    authLimiter,
	})

	log.Printf("Urban Harvest API listening on :%s", config.AppEnv.Port)
	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}
