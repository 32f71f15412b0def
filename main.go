package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"bajar/internal/config"
	"bajar/internal/database"
	"bajar/internal/handlers"
	"bajar/internal/middleware"
	"bajar/internal/session"
	"bajar/internal/token"
	"bajar/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(cfg.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db, cfg.Session.Retention); err != nil {
		log.Printf("⚠️ refresh token index warning: %v", err)
	}

	codec := token.NewCodec(cfg.Session)
	sessionStore := session.NewMongoStore(db)
	sessions := session.NewManager(cfg.Session, codec, sessionStore)
	userStore := users.NewMongoStore(db)

	r := gin.Default()

	auth := r.Group("/auth")
	{
		auth.POST("/register", handlers.Register(userStore, sessions, cfg))
		auth.POST("/login", handlers.Login(userStore, sessions, cfg))
		auth.POST("/refresh", handlers.Refresh(userStore, sessions, cfg))
		auth.POST("/logout", handlers.Logout(sessions, cfg))
		auth.GET("/me", middleware.Protect(codec, userStore), handlers.Me())
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.Protect(codec, userStore), middleware.Admin())
	{
		admin.GET("/me", handlers.Me())
	}

	r.Run(":" + cfg.Port)
}
