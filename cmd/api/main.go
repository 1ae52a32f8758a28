package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/accounts-api/internal/config"
	"github.com/yourusername/accounts-api/internal/handler"
	"github.com/yourusername/accounts-api/internal/middleware"
	pgRepo "github.com/yourusername/accounts-api/internal/repository/postgres"
	"github.com/yourusername/accounts-api/internal/service"
	"github.com/yourusername/accounts-api/pkg/auth"
	"github.com/yourusername/accounts-api/pkg/database"
	"github.com/yourusername/accounts-api/pkg/hash"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Repositories
	userRepo := pgRepo.NewUserRepo(db)
	codeRepo := pgRepo.NewVerificationCodeRepo(db)

	// Core services
	hasher := hash.NewPasswordHasher()

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.TokenTTL())
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	verificationService, err := service.NewVerificationService(codeRepo, cfg.Verification.CodeTTL())
	if err != nil {
		log.Printf("Failed to initialize VerificationService: %v", err)
		os.Exit(1)
	}

	var emailService service.EmailService
	switch cfg.Email.Provider {
	case "resend":
		emailService, err = service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		log.Println("Email provider: resend")
	default:
		emailService = &service.NoopEmailService{}
		log.Println("Email provider: noop (codes are logged, not sent)")
	}

	authService, err := service.NewAuthService(
		userRepo,
		verificationService,
		emailService,
		jwtService,
		hasher,
		cfg.Auth.RequireVerifiedToLogin,
	)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	adminService, err := service.NewAdminService(userRepo, hasher)
	if err != nil {
		log.Printf("Failed to initialize AdminService: %v", err)
		os.Exit(1)
	}

	if err := adminService.EnsureAdmin(cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Printf("Failed to seed admin account: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic cleanup of expired verification codes
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deleted, err := verificationService.CleanupExpired()
				if err != nil {
					log.Printf("Failed to clean up expired verification codes: %v", err)
				} else if deleted > 0 {
					log.Printf("Cleaned up %d expired verification codes", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Handlers and middleware
	authHandler := handler.NewAuthHandler(authService, jwtService)
	userHandler := handler.NewUserHandler(authService)
	adminHandler := handler.NewAdminHandler(adminService)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, userRepo)

	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello world!"})
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/verify-code", authHandler.VerifyCode)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}

		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", userHandler.Me)
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/users/export", adminHandler.ExportUsers)
			admin.POST("/users", adminHandler.CreateUser)
			admin.GET("/users/:email", adminHandler.GetUser)
			admin.DELETE("/users/:email", adminHandler.DeleteUser)
			admin.DELETE("/users", adminHandler.DeleteAllUsers)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
