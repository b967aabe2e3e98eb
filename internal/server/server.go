// Package server exposes the bookmark archive over HTTP for the browser
// extension and the dashboard.
package server

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/user/stashd/internal/config"
	"github.com/user/stashd/internal/db"
	"github.com/user/stashd/internal/ingest"
)

type Server struct {
	cfg      *config.Config
	store    *db.Store
	svc      *ingest.Service
	app      *fiber.App
	validate *validator.Validate
}

func New(cfg *config.Config, store *db.Store, svc *ingest.Service) *Server {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	s := &Server{
		cfg:      cfg,
		store:    store,
		svc:      svc,
		app:      fiber.New(fiber.Config{BodyLimit: 64 * 1024 * 1024}),
		validate: validate,
	}

	s.app.Use(
		recover.New(),
		cors.New(),
	)
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Post("/bookmarks", s.handleIngest)
	api.Get("/bookmarks", s.handleList)
	api.Get("/bookmarks/:id", s.handleGet)
	api.Delete("/bookmarks/:id", s.handleDelete)
	api.Delete("/bookmarks", s.handleDeleteAll)

	api.Post("/bookmarks/:id/articles", s.handleAttachArticle)
	api.Post("/bookmarks/:id/transcribe", s.handleTranscribe)
	api.Post("/bookmarks/:id/summarize", s.handleSummarize)

	api.Get("/export", s.handleExport)
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	logrus.Infof("Listening on %s", s.cfg.Server.Addr)
	return s.app.Listen(s.cfg.Server.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// notFoundOr maps missing-bookmark errors to 404 and everything else to 500.
func notFoundOr(c *fiber.Ctx, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Bookmark not found",
		})
	}
	logrus.Errorf("Request failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
