package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/viper"

	"github.com/hetfieldh/financas-web/internal/database"
	mW "github.com/hetfieldh/financas-web/internal/middleware"
	"github.com/hetfieldh/financas-web/internal/services"
	"github.com/hetfieldh/financas-web/web"
)

// crudService is the handler surface every entity service exposes.
type crudService interface {
	List(http.ResponseWriter, *http.Request)
	NewForm(http.ResponseWriter, *http.Request)
	EditForm(http.ResponseWriter, *http.Request)
	CreateHandler(http.ResponseWriter, *http.Request)
	UpdateHandler(http.ResponseWriter, *http.Request)
	DeleteHandler(http.ResponseWriter, *http.Request)
}

func mountCRUD(r chi.Router, path string, svc crudService) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", svc.List)
		r.Get("/new", svc.NewForm)
		r.Post("/", svc.CreateHandler)
		r.Get("/{id}/edit", svc.EditForm)
		r.Post("/{id}", svc.UpdateHandler)
		r.Post("/{id}/delete", svc.DeleteHandler)
	})
}

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("session.secret_key", "SESSION_SECRET_KEY")
	viper.BindEnv("session.expiry_hours", "SESSION_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if viper.GetString("session.secret_key") == "" {
		log.Fatal("SESSION_SECRET_KEY must be set")
	}

	db := database.InitDatabase()
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	render, err := services.NewRenderer(redisClient)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	mW.InitSessionMiddleware(redisClient)

	authService := services.NewAuthService(db, redisClient, render)
	userService := services.NewUserService(db, render)
	accountService := services.NewAccountService(db, render)
	txTypeService := services.NewTransactionTypeService(db, render)
	movementService := services.NewMovementService(db, render)
	creditGroupService := services.NewCreditGroupService(db, render)
	creditCardService := services.NewCreditCardService(db, render)
	purchaseService := services.NewPurchaseService(db, render)
	incomeTypeService := services.NewIncomeTypeService(db, render)
	incomeMovementService := services.NewIncomeMovementService(db, render)
	expenseTypeService := services.NewExpenseTypeService(db, render)
	fixedExpenseService := services.NewFixedExpenseService(db, render)
	statementService := services.NewStatementService(db, render)

	if err := userService.EnsureAdminUser(); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	r := chi.NewRouter()
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Handle("/static/*", mW.StaticFileServer(web.StaticFS))

	r.Get("/login", authService.LoginForm)
	r.Post("/login", authService.Login)

	r.Group(func(r chi.Router) {
		r.Use(mW.RequireSession)

		r.Post("/logout", authService.Logout)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			userID, _ := mW.UserID(req.Context())
			accounts, err := accountService.ListByUser(userID)
			if err != nil {
				log.Printf("[HOME] Failed to load accounts: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			render.HTML(w, req, "home", map[string]any{"Accounts": accounts})
		})

		mountCRUD(r, "/accounts", accountService)
		mountCRUD(r, "/transaction-types", txTypeService)
		mountCRUD(r, "/movements", movementService)
		mountCRUD(r, "/credit-groups", creditGroupService)
		mountCRUD(r, "/credit-cards", creditCardService)
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", purchaseService.List)
			r.Get("/new", purchaseService.NewForm)
			r.Post("/", purchaseService.CreateHandler)
			r.Get("/{id}", purchaseService.Show)
			r.Get("/{id}/edit", purchaseService.EditForm)
			r.Post("/{id}", purchaseService.UpdateHandler)
			r.Post("/{id}/delete", purchaseService.DeleteHandler)
		})
		mountCRUD(r, "/income-types", incomeTypeService)
		mountCRUD(r, "/income-movements", incomeMovementService)
		mountCRUD(r, "/expense-types", expenseTypeService)
		mountCRUD(r, "/fixed-expenses", fixedExpenseService)

		r.Get("/statements/bank", statementService.BankStatement)
		r.Get("/statements/credit", statementService.CreditStatement)

		r.Group(func(r chi.Router) {
			r.Use(mW.RequireAdmin)
			mountCRUD(r, "/users", userService)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
