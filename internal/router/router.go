// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/expeditor/backoffice/internal/auth"
	"github.com/expeditor/backoffice/internal/config"
	"github.com/expeditor/backoffice/internal/handler"
	"github.com/expeditor/backoffice/internal/middleware"
	"github.com/expeditor/backoffice/internal/model"
)

// Handlers collects every handler the API mounts.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Roles        *handler.RoleHandler
	Dictionaries *handler.DictionaryHandler
	Imports      *handler.ImportHandler
}

// Register mounts the whole HTTP surface.
//
//	/healthz                  liveness probe
//	/v1/auth/*                login and explicit refresh (no token required)
//	/v1/*                     authenticated surface, transparent refresh applies
//	/v1/users, /v1/roles,
//	/v1/imports/*             admin only
//
// Dictionary GETs sit behind the Redis response cache when a client is
// available; login sits behind the token-bucket limiter.
func Register(e *echo.Echo, mgr *auth.Manager, h Handlers, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	pub := e.Group("/v1/auth")
	pub.POST("/login", h.Auth.Login, limiter)
	pub.POST("/refresh", h.Auth.Refresh)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(mgr))

	v1.POST("/auth/logout", h.Auth.Logout)
	v1.GET("/profile", h.Auth.Profile)
	v1.PATCH("/profile", h.Auth.UpdateProfile)
	v1.GET("/session", h.Auth.Session)

	// Reference data: any authenticated role may read, cached when possible.
	v1.GET("/currencies", h.Dictionaries.ListCurrencies, cache)
	v1.GET("/currencies/:id", h.Dictionaries.GetCurrency, cache)
	v1.GET("/countries", h.Dictionaries.ListCountries, cache)
	v1.GET("/countries/:id", h.Dictionaries.GetCountry, cache)
	v1.GET("/banks", h.Dictionaries.ListBanks, cache)
	v1.GET("/banks/:id", h.Dictionaries.GetBank, cache)
	v1.GET("/stations", h.Dictionaries.ListStations, cache)
	v1.GET("/stations/:id", h.Dictionaries.GetStation, cache)
	v1.GET("/wagons", h.Dictionaries.ListWagons)
	v1.GET("/wagons/:number", h.Dictionaries.GetWagon)
	v1.GET("/contracts", h.Dictionaries.ListContracts)
	v1.GET("/contracts/:id", h.Dictionaries.GetContract)

	admin := v1.Group("", middleware.RequireRole(model.RoleAdmin))

	admin.GET("/users", h.Users.List)
	admin.POST("/users", h.Users.Create)
	admin.GET("/users/:id", h.Users.Get)
	admin.PATCH("/users/:id", h.Users.Update)
	admin.DELETE("/users/:id", h.Users.Delete)

	admin.GET("/roles", h.Roles.List)
	admin.GET("/roles/:id", h.Roles.Get)
	admin.POST("/roles", h.Roles.Create)
	admin.DELETE("/roles/:id", h.Roles.Delete)

	admin.POST("/currencies", h.Dictionaries.CreateCurrency)
	admin.PUT("/currencies/:id", h.Dictionaries.UpdateCurrency)
	admin.DELETE("/currencies/:id", h.Dictionaries.DeleteCurrency)
	admin.POST("/banks", h.Dictionaries.CreateBank)
	admin.PUT("/banks/:id", h.Dictionaries.UpdateBank)
	admin.DELETE("/banks/:id", h.Dictionaries.DeleteBank)

	admin.POST("/imports/1c", h.Imports.ImportOneC)
	admin.POST("/imports/dislocation", h.Imports.ImportDislocation)
}
