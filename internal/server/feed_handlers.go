package server

import (
	"feedhub/internal/models"
	"feedhub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
	// Image is the current image path for updates that do not re-upload. Creates ignore it.
	Image    string `json:"image" form:"image"`
	ImageURL string `json:"imageUrl" form:"imageUrl"`
}

func (r postRequest) imagePath() string {
	if r.Image != "" {
		return r.Image
	}
	return r.ImageURL
}

// GetPosts handles GET /feed/posts
// @Summary List posts
// @Description One page of the feed, newest first
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number, starting at 1"
// @Success 200 {object} object{message=string,posts=[]models.Post,totalItems=int}
// @Failure 401 {object} models.ErrorResponse
// @Router /feed/posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)

	result, err := s.postService.ListPosts(c.UserContext(), actorFrom(c), page)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":    "Fetched posts successfully.",
		"posts":      result.Posts,
		"totalItems": result.TotalItems,
	})
}

// CreatePost handles POST /feed/post
// @Summary Create a post
// @Description Accepts multipart form data with an "image" file. Image paths in the body are ignored.
// @Tags feed
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param image formData file false "Image (png, jpg, jpeg)"
// @Success 201 {object} object{message=string,post=models.Post,creator=models.UserSummary}
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /feed/post [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actor := actorFrom(c)
	if err := service.RequireAuthenticated(actor); err != nil {
		return models.RespondWithError(c, err)
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	stored := ""
	if file := s.uploadedImage(c); file != nil {
		path, err := s.storeImage(ctx, actor.UserID, file, "")
		if err != nil {
			return models.RespondWithError(c, err)
		}
		stored = path
	}

	post, err := s.postService.CreatePost(ctx, actor, service.CreatePostInput{
		Title:        req.Title,
		Content:      req.Content,
		ImageURL:     stored,
		RequireImage: true,
	})
	if err != nil {
		if stored != "" {
			s.media.RemoveAsync(ctx, actor.UserID, stored)
		}
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully!",
		"post":    post,
		"creator": post.Creator,
	})
}

// GetPost handles GET /feed/post/:postId
// @Summary Get a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/post/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if err := service.RequireAuthenticated(actor); err != nil {
		return models.RespondWithError(c, err)
	}
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return models.RespondWithError(c, err)
	}

	post, err := s.postService.GetPost(c.UserContext(), actor, id)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post fetched.",
		"post":    post,
	})
}

// UpdatePost handles PUT /feed/post/:postId
// @Summary Update a post
// @Description Only the creator may update. A new "image" file replaces the stored one;
// @Description otherwise the "image" field must carry the current image path.
// @Tags feed
// @Accept mpfd,json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /feed/post/{postId} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	actor := actorFrom(c)
	if err := service.RequireAuthenticated(actor); err != nil {
		return models.RespondWithError(c, err)
	}
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return models.RespondWithError(c, err)
	}
	if _, err := s.postService.AuthorizeUpdate(ctx, actor, id); err != nil {
		return models.RespondWithError(c, err)
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	imagePath := req.imagePath()
	stored := ""
	if file := s.uploadedImage(c); file != nil {
		path, err := s.storeImage(ctx, actor.UserID, file, "")
		if err != nil {
			return models.RespondWithError(c, err)
		}
		imagePath, stored = path, path
	}

	post, err := s.postService.UpdatePost(ctx, actor, id, service.UpdatePostInput{
		Title:        req.Title,
		Content:      req.Content,
		ImageURL:     imagePath,
		RequireImage: true,
	})
	if err != nil {
		if stored != "" {
			s.media.RemoveAsync(ctx, actor.UserID, stored)
		}
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated!",
		"post":    post,
	})
}

// DeletePost handles DELETE /feed/post/:postId
// @Summary Delete a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/post/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	actor := actorFrom(c)
	if err := service.RequireAuthenticated(actor); err != nil {
		return models.RespondWithError(c, err)
	}
	id, err := parseID(c, "postId", "Post")
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if err := s.postService.DeletePost(c.UserContext(), actor, id); err != nil {
		return models.RespondWithError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Deleted post."})
}
