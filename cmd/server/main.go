// main.go
//
// Sales operations data service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of salesops.
// salesops is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// salesops is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with salesops.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package main

import (
	"errors"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/localnerve/salesops/internal/config"
	"github.com/localnerve/salesops/internal/database"
	"github.com/localnerve/salesops/internal/handlers"
	"github.com/localnerve/salesops/internal/logger"
	"github.com/localnerve/salesops/internal/middleware"
	"github.com/localnerve/salesops/internal/repos"
	"github.com/localnerve/salesops/internal/services"
	"github.com/localnerve/salesops/internal/types"

	_ "github.com/localnerve/salesops/docs/api" // Swagger docs
)

// @title SalesOps API
// @version 1.0.0
// @description Sales operations service: competitors, price simulation, OKR workflow and quotations
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/salesops
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		stdlog.Fatalf("Failed to create logger: %v", err)
	}
	defer log.Sync()

	// Connect to database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close(db)

	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
	}

	r, err := repos.New(db, log)
	if err != nil {
		log.Fatal("Failed to create repositories", "error", err)
	}
	svcs := services.New(cfg, db, r, log)
	auth := services.NewAuthService(cfg, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler(log),
		DisableStartupMessage: cfg.AppEnv == "prod",
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("salesops")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	handlers.New(svcs, log).Register(app, api, middleware.AuthApprover(auth))

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	if auth.Enabled() {
		log.Info("Approval routes require an Authorizer session", "url", cfg.AuthzURL)
	} else {
		log.Warn("AUTHZ_URL not set, approval routes are open")
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Info("Starting server", "port", cfg.Port, "profiles", cfg.Profiles)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server", "error", err)
	}

	log.Info("Server stopped")
}

// customErrorHandler renders errors that escape the handlers in the standard envelope
func customErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := err.Error()
		errorType := "unknown"

		var fe *fiber.Error
		var ce *types.CustomError
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		case errors.As(err, &ce):
			code = ce.Code
			message = ce.Message
			errorType = ce.Type
		}

		if code >= fiber.StatusInternalServerError {
			log.Error("unhandled error", "url", c.OriginalURL(), "requestId", c.Locals("requestid"), "error", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    code,
			"message":   message,
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
			"type":      errorType,
		})
	}
}
