package main

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/threadkart/threadkart-backend-go/config"
	"github.com/threadkart/threadkart-backend-go/database"
	"github.com/threadkart/threadkart-backend-go/handlers"
	"github.com/threadkart/threadkart-backend-go/mail"
	custommw "github.com/threadkart/threadkart-backend-go/middleware"
	"github.com/threadkart/threadkart-backend-go/routes"
	"github.com/threadkart/threadkart-backend-go/storage"
	"github.com/threadkart/threadkart-backend-go/utils"
)

func main() {
	cfg := config.Load()

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(custommw.Metrics())

	db, err := database.Connect(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	images, err := storage.NewS3Store(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up image store")
	}

	mailer := mail.NewSMTPMailer(cfg)

	products := handlers.NewProductHandler(database.NewProductStore(db), images)
	users := handlers.NewUserHandler(database.NewUserStore(db), mailer, cfg.JWTSecret)

	routes.SetupRoutes(e, products, users, cfg)

	logrus.WithField("port", cfg.Port).Info("starting server")
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
