package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/synergychantilly/cgresbox-backend/app/repository"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/cache"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/database"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/docsync"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/env"
	"github.com/synergychantilly/cgresbox-backend/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName: "cgresbox",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	// Periodic reconciliation sweep, disabled when SWEEP_INTERVAL_HOURS=0.
	hours, err := strconv.Atoi(env.GetEnv("SWEEP_INTERVAL_HOURS", "24"))
	if err != nil {
		hours = 24
	}
	if hours > 0 {
		svc := docsync.NewServiceFromDB(database.GetDB())
		docsync.StartSweepWorker(context.Background(), svc, time.Duration(hours)*time.Hour)
	}

	return app
}
