package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"libraryledger/internal/config"
	"libraryledger/internal/handlers"
	"libraryledger/internal/repositories"
	"libraryledger/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	userRepo := repositories.NewUserRepository(db)
	authorRepo := repositories.NewAuthorRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	penaltyRepo := repositories.NewPenaltyRepository(db)

	authService := services.NewAuthService(db, userRepo, cfg.JWTSecret, cfg.TokenTTL)
	catalogService := services.NewCatalogService(db, userRepo, authorRepo, categoryRepo, bookRepo, txRepo)
	ledgerService := services.NewLedgerService(
		db, userRepo, bookRepo, txRepo, penaltyRepo,
		cfg.LoanPeriod, cfg.PenaltyUnit, cfg.PenaltyRate,
	)

	router := gin.Default()

	handlers.RegisterRoutes(router, db, authService, catalogService, ledgerService)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Printf("Starting server on %s (loan period %s, penalty %.2f per %s)",
		cfg.ServerAddr, cfg.LoanPeriod, cfg.PenaltyRate, cfg.PenaltyUnit)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
