package server

import (
	"context"
	"mime/multipart"
	"strconv"
	"strings"

	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// actorFrom returns the caller set by middleware.Authenticate, or nil when anonymous.
func actorFrom(c *fiber.Ctx) *models.Identity {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil
	}
	return &identity
}

// parseID extracts a route parameter as a positive id. Anything else cannot name a
// stored resource, so it fails as NOT_FOUND.
func parseID(c *fiber.Ctx, param, resource string) (uint, error) {
	raw := strings.TrimSpace(c.Params(param))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewNotFoundError(resource, raw)
	}
	return uint(id), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// uploadedImage returns the multipart "image" file when one was declared with an
// accepted type. Rejected types are treated as no file; the content is checked on store.
func (s *Server) uploadedImage(c *fiber.Ctx) *multipart.FileHeader {
	file, err := c.FormFile("image")
	if err != nil || file == nil {
		return nil
	}
	if !s.media.Accepts(file.Header.Get("Content-Type")) {
		return nil
	}
	return file
}

// storeImage writes an uploaded file to the media store on behalf of owner and returns its
// image path. A non-empty oldPath is removed once the new file is stored.
func (s *Server) storeImage(ctx context.Context, owner uint, file *multipart.FileHeader, oldPath string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	return s.media.Replace(ctx, service.Upload{
		Owner:       owner,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        src,
	}, oldPath)
}
