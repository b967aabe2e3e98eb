package server

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/user/stashd/internal/export"
	"github.com/user/stashd/internal/ingest"
)

func (s *Server) handleIngest(c *fiber.Ctx) error {
	var p ingest.Payload
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}

	if err := s.validate.Struct(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	if err := s.svc.Ingest(p); err != nil {
		logrus.Errorf("Ingest failed for %s: %v", p.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":     p.ID,
		"status": "accepted",
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	if q := c.Query("q"); q != "" {
		results, err := s.store.Search(q, limit)
		if err != nil {
			return notFoundOr(c, err)
		}
		return c.JSON(results)
	}

	bookmarks, err := s.store.ListEnriched(limit)
	if err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(bookmarks)
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	eb, err := s.store.GetEnriched(c.Params("id"))
	if err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(eb)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.store.Delete(c.Params("id")); err != nil {
		return notFoundOr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteAll(c *fiber.Ctx) error {
	if err := s.store.DeleteAll(); err != nil {
		return notFoundOr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleAttachArticle accepts three shapes on the same route: a JSON body
// with a url to fetch, a JSON body with pasted text, or a multipart upload
// with a pdf file field.
func (s *Server) handleAttachArticle(c *fiber.Ctx) error {
	id := c.Params("id")

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("pdf")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing pdf file field",
			})
		}
		f, err := fh.Open()
		if err != nil {
			return notFoundOr(c, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return notFoundOr(c, err)
		}

		art, err := s.svc.AttachPDF(id, fh.Filename, data)
		if err != nil {
			return notFoundOr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(art)
	}

	var body struct {
		URL   string `json:"url"`
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}

	if body.URL != "" {
		art, err := s.svc.AttachArticleURL(id, body.URL)
		if err != nil {
			return notFoundOr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(art)
	}
	if body.Text != "" {
		art, err := s.svc.AttachPastedArticle(id, body.Title, body.Text)
		if err != nil {
			return notFoundOr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(art)
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Provide a url, pasted text, or a pdf upload",
	})
}

func (s *Server) handleTranscribe(c *fiber.Ctx) error {
	var body struct {
		VideoURL string `json:"videoUrl"`
	}
	if err := c.BodyParser(&body); err != nil || body.VideoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "videoUrl is required",
		})
	}

	res, err := s.svc.Transcribe(c.Context(), c.Params("id"), body.VideoURL)
	if err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(fiber.Map{
		"transcript": res.Text,
		"strategy":   res.Strategy,
	})
}

func (s *Server) handleSummarize(c *fiber.Ctx) error {
	summary, err := s.svc.Summarize(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr(c, err)
	}
	return c.JSON(fiber.Map{
		"summary": summary,
	})
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	data, err := export.Archive(s.store)
	if err != nil {
		return notFoundOr(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="stashd-export.zip"`)
	return c.Send(data)
}
