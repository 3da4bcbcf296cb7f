package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/expeditor/backoffice/internal/auth"
	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/database"
	"github.com/expeditor/backoffice/internal/handler"
	"github.com/expeditor/backoffice/internal/model"
	"github.com/expeditor/backoffice/internal/provider"
	"github.com/expeditor/backoffice/internal/queue"
	"github.com/expeditor/backoffice/internal/repository"
	"github.com/expeditor/backoffice/internal/router"
	"github.com/expeditor/backoffice/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; features degrade

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	sessions := repository.NewSessionRepo(db)

	if err := bootstrap(users, roles, cfg.BcryptCost); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	mgr := auth.NewManager(cfg, users, roles, sessions)

	var fetcher provider.DislocationFetcher
	if cfg.RWProviderURL != "" {
		fetcher = provider.NewDislocationClient(cfg.RWProviderURL, cfg.RWProviderName, cfg.RWProviderPass)
	}

	h := router.Handlers{
		Auth:  handler.NewAuthHandler(mgr, users),
		Users: handler.NewUserHandler(cfg, users, roles),
		Roles: handler.NewRoleHandler(roles),
		Dictionaries: handler.NewDictionaryHandler(
			repository.NewCurrencyRepo(db),
			repository.NewCountryRepo(db),
			repository.NewBankRepo(db),
			repository.NewStationRepo(db),
			repository.NewWagonRepo(db),
			repository.NewContractRepo(db),
		),
		Imports: handler.NewImportHandler(repository.NewImportRepo(db), fetcher, cfg.RWProviderName),
	}

	go func() {
		if err := queue.StartImportConsumer(); err != nil {
			log.Printf("import-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, mgr, h, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// bootstrap makes sure the baseline roles exist and, on a completely empty
// users table, creates the initial admin account (username and password
// both "admin"). The password is expected to be changed right after the
// first login.
func bootstrap(users *repository.UserRepo, roles *repository.RoleRepo, bcryptCost int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := roles.GetOrSeed(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}

	empty, err := users.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	hash, err := utils.HashPassword("admin", bcryptCost)
	if err != nil {
		return err
	}
	id, err := users.Create(ctx, model.User{
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: hash,
		RoleID:       admin.ID,
		IsActive:     true,
		IsVerified:   true,
	})
	if err != nil {
		return err
	}
	log.Printf("bootstrap: created initial admin (id=%d), change its password", id)
	return nil
}
