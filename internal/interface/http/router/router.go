package router

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wichananm65/user-registry/internal/logging"
	"github.com/wichananm65/user-registry/internal/user"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Presigner is satisfied by *upload.S3Store.
type Presigner interface {
	PresignGet(ctx context.Context, name string) (string, error)
}

type Deps struct {
	BasePath  string
	PublicDir string
	BodyLimit int
	UploadDir string
	Presigner Presigner
	Users     *user.Handler
	DB        Pinger
	Logger    *slog.Logger
}

// New wires middleware, the user API, uploaded pictures and the optional
// static frontend into a fiber app.
func New(d Deps) *fiber.App {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	cfg := fiber.Config{
		ErrorHandler: errorHandler(d.Logger),
	}
	if d.BodyLimit > 0 {
		cfg.BodyLimit = d.BodyLimit
	}
	app := fiber.New(cfg)

	app.Use(recover.New())
	app.Use(logging.RequestLogger(d.Logger))
	setupCORS(app)

	app.Get("/health", healthHandler(d.DB))

	switch {
	case d.Presigner != nil:
		app.Get("/uploads/:name", presignedRedirect(d.Presigner))
	case d.UploadDir != "":
		app.Static("/uploads", d.UploadDir)
	}

	if d.Users != nil {
		d.Users.RegisterRoutes(app.Group(d.BasePath))
	}

	if d.PublicDir != "" {
		if info, err := os.Stat(d.PublicDir); err == nil && info.IsDir() {
			app.Static("/", d.PublicDir)
		}
	}

	return app
}

func setupCORS(app *fiber.App) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
}

func healthHandler(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			if err := db.PingContext(c.UserContext()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

func presignedRedirect(p Presigner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url, err := p.PresignGet(c.UserContext(), c.Params("name"))
		if err != nil {
			return fiber.ErrNotFound
		}
		return c.Redirect(url, fiber.StatusTemporaryRedirect)
	}
}

// errorHandler keeps every error body in the {"error": "..."} shape.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
