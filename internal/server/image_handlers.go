package server

import (
	"mime"
	"path"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles PUT /post-image
// @Summary Upload a post image
// @Description Stores the "image" file and returns its path for a later post mutation.
// @Description When oldPath names an image the caller uploaded, it is removed.
// @Tags media
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file false "Image (png, jpg, jpeg)"
// @Param oldPath formData string false "Image path being replaced"
// @Success 201 {object} object{message=string,filePath=string}
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /post-image [put]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if err := service.RequireAuthenticated(actor); err != nil {
		return models.RespondWithError(c, err)
	}

	file := s.uploadedImage(c)
	if file == nil {
		return c.JSON(fiber.Map{"message": "No file provided!"})
	}

	filePath, err := s.storeImage(c.UserContext(), actor.UserID, file, c.FormValue("oldPath"))
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "File stored.",
		"filePath": filePath,
	})
}

// ServeImage handles GET /images/*
// @Summary Fetch a stored image
// @Tags media
// @Produce png,jpeg
// @Param name path string true "Image name"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{name} [get]
func (s *Server) ServeImage(c *fiber.Ctx) error {
	name := path.Base("/" + strings.ReplaceAll(c.Params("*"), "\\", "/"))
	if name == "/" || name == "." || name == ".." {
		return models.RespondWithError(c, models.NewNotFoundError("Image", c.Params("*")))
	}

	rc, err := s.media.Open(c.UserContext(), name)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes rc once the body has been written.
	return c.SendStream(rc)
}
