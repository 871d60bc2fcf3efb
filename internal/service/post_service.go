package service

import (
	"context"
	"log/slog"
	"time"

	"feedhub/internal/models"
	"feedhub/internal/observability"
	"feedhub/internal/repository"
	"feedhub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Post change actions carried by broadcast events.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// imageUnchanged is the placeholder some clients send when the image was not replaced.
const imageUnchanged = "undefined"

// ChangeNotifier fans post changes out to connected observers. Broadcast must not block
// and has no failure mode visible to the caller.
type ChangeNotifier interface {
	Broadcast(ctx context.Context, action string, payload any)
}

// ArtifactRemover schedules best-effort removal of an image artifact stored by owner.
// Artifacts stored by anyone else are left in place.
type ArtifactRemover interface {
	RemoveAsync(ctx context.Context, owner uint, imagePath string)
}

type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	media    ArtifactRemover
	notifier ChangeNotifier
	pages    PagePolicy
	now      func() time.Time
}

type CreatePostInput struct {
	Title    string
	Content  string
	ImageURL string
	// RequireImage rejects a missing image with MISSING_MEDIA. Uploading clients set it;
	// clients that pass a pre-resolved URL do not.
	RequireImage bool
}

type UpdatePostInput struct {
	Title   string
	Content string
	// ImageURL replaces the current image. Empty or "undefined" keeps it unless RequireImage is set.
	ImageURL     string
	RequireImage bool
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	media ArtifactRemover,
	notifier ChangeNotifier,
	pages PagePolicy,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		media:    media,
		notifier: notifier,
		pages:    pages,
		now:      time.Now,
	}
}

// ListPosts returns one page of the feed, newest first, with creators joined in.
func (s *PostService) ListPosts(ctx context.Context, actor *models.Identity, page int) (*models.PostPage, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "posts.list", attribute.Int("feed.page", page))
	defer span.End()

	window := s.pages.Window(page)

	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if int64(window.Skip) >= total {
		return &models.PostPage{Posts: []*models.Post{}, TotalItems: total}, nil
	}
	posts, err := s.postRepo.List(ctx, window.Skip, window.Limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachCreators(ctx, posts); err != nil {
		return nil, err
	}

	return &models.PostPage{Posts: posts, TotalItems: total}, nil
}

// GetPost returns a single post with its creator.
func (s *PostService) GetPost(ctx context.Context, actor *models.Identity, id uint) (*models.Post, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachCreators(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePost stores a new post owned by actor and records it in the actor's post list.
func (s *PostService) CreatePost(ctx context.Context, actor *models.Identity, in CreatePostInput) (*models.Post, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "posts.create")
	defer span.End()

	if err := validatePostText(in.Title, in.Content); err != nil {
		return nil, err
	}
	if in.RequireImage && in.ImageURL == "" {
		return nil, models.NewMissingMediaError("No image provided.")
	}

	creator, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewUnauthorizedError("Invalid user.")
		}
		return nil, err
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		CreatorID: creator.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	if err := s.userRepo.AppendPost(ctx, creator.ID, post.ID); err != nil {
		return nil, err
	}
	post.Creator = &models.UserSummary{ID: creator.ID, Name: creator.Name}

	s.notifier.Broadcast(ctx, ActionCreate, post)
	return post, nil
}

// AuthorizeUpdate loads post id and checks that actor may change or delete it.
// Transports call it before reading any request body.
func (s *PostService) AuthorizeUpdate(ctx context.Context, actor *models.Identity, id uint) (*models.Post, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(actor.UserID, post.CreatorID); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost changes a post owned by actor. Ownership is checked before the input.
func (s *PostService) UpdatePost(ctx context.Context, actor *models.Identity, id uint, in UpdatePostInput) (*models.Post, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	ctx, span := observability.StartSpan(ctx, "posts.update", attribute.Int64("feed.post_id", int64(id)))
	defer span.End()

	post, err := s.AuthorizeUpdate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := validatePostText(in.Title, in.Content); err != nil {
		return nil, err
	}

	imageURL := in.ImageURL
	if imageURL == imageUnchanged {
		imageURL = ""
	}
	if imageURL == "" {
		if in.RequireImage {
			return nil, models.NewMissingMediaError("No file picked.")
		}
		imageURL = post.ImageURL
	}

	previousImage := post.ImageURL
	post.Title = in.Title
	post.Content = in.Content
	post.ImageURL = imageURL
	if now := s.now(); now.After(post.UpdatedAt) {
		post.UpdatedAt = now
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	if previousImage != imageURL {
		s.releaseImage(ctx, post, previousImage)
	}
	if err := s.attachCreators(ctx, []*models.Post{post}); err != nil {
		return nil, err
	}

	s.notifier.Broadcast(ctx, ActionUpdate, post)
	return post, nil
}

// DeletePost removes a post owned by actor, its image and its back-reference.
func (s *PostService) DeletePost(ctx context.Context, actor *models.Identity, id uint) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	ctx, span := observability.StartSpan(ctx, "posts.delete", attribute.Int64("feed.post_id", int64(id)))
	defer span.End()

	post, err := s.AuthorizeUpdate(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.releaseImage(ctx, post, post.ImageURL)
	if err := s.userRepo.RemovePost(ctx, post.CreatorID, post.ID); err != nil {
		return err
	}

	s.notifier.Broadcast(ctx, ActionDelete, post.ID)
	return nil
}

// releaseImage schedules removal of an image post no longer shows, unless another
// post still references it.
func (s *PostService) releaseImage(ctx context.Context, post *models.Post, imagePath string) {
	if imagePath == "" {
		return
	}
	shared, err := s.postRepo.CountByImage(ctx, imagePath, post.ID)
	if err != nil {
		observability.LogAsyncError(ctx, "media.release", err, slog.String("image", imagePath))
		return
	}
	if shared > 0 {
		return
	}
	s.media.RemoveAsync(ctx, post.CreatorID, imagePath)
}

// attachCreators joins creator summaries onto posts in one lookup.
func (s *PostService) attachCreators(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	seen := make(map[uint]bool, len(posts))
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		if !seen[p.CreatorID] {
			seen[p.CreatorID] = true
			ids = append(ids, p.CreatorID)
		}
	}

	summaries, err := s.userRepo.GetSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		summary, ok := summaries[p.CreatorID]
		if !ok {
			summary = models.UserSummary{ID: p.CreatorID}
		}
		p.Creator = &summary
	}
	return nil
}

func validatePostText(title, content string) error {
	var fields []models.FieldError
	if err := validation.ValidateText(title); err != nil {
		fields = append(fields, models.FieldError{Field: "title", Message: "Title is invalid: " + err.Error()})
	}
	if err := validation.ValidateText(content); err != nil {
		fields = append(fields, models.FieldError{Field: "content", Message: "Content is invalid: " + err.Error()})
	}
	if len(fields) > 0 {
		return models.NewValidationError("Validation failed, entered data is incorrect.", fields...)
	}
	return nil
}
