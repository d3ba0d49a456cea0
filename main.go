package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/repository"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("user index warning:", err)
	}
	if err := database.EnsureActivityIndexes(db); err != nil {
		log.Println("activity index warning:", err)
	}

	issuer, err := auth.NewTokenIssuer(
		config.AppEnv.AccessSecret,
		config.AppEnv.RefreshSecret,
		config.AppEnv.AccessTokenTTL,
		config.AppEnv.RefreshTokenTTL,
	)
	if err != nil {
		log.Fatal(err)
	}

	users := repository.NewMongoUserStore(db)
	authService := auth.NewService(users, auth.NewBcryptHasher(), issuer, config.AppEnv.MaxUsers)

	r := gin.Default()

	r.POST("/auth/register", handlers.Register(authService))
	r.POST("/auth/login", handlers.Login(authService))
	r.POST("/auth/refresh", handlers.Refresh(authService))
	r.POST("/auth/logout", middleware.RequireAuth(authService), handlers.Logout(authService))
	r.GET("/auth/me", middleware.RequireAuth(authService), handlers.GetMe())

	r.GET("/activities", handlers.GetActivities(db))
	r.GET("/activities/:id", handlers.GetActivity(db))

	protected := r.Group("/")
	protected.Use(middleware.RequireAuth(authService))
	{
		protected.POST("/activities", handlers.CreateActivity(db, config.AppEnv.MaxActivities))
		protected.PUT("/activities/:id", handlers.UpdateActivity(db))
		protected.DELETE("/activities/:id", handlers.DeleteActivity(db))
		protected.PUT("/user/profile", handlers.UpdateProfile(users, db))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
