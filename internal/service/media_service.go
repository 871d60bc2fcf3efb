package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"feedhub/internal/models"
	"feedhub/internal/observability"
	"feedhub/internal/storage"

	"github.com/google/uuid"
)

// ImagePathPrefix prefixes every stored image reference; GET /images/* serves them.
const ImagePathPrefix = "images/"

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
}

// imageExtensions lists the file extensions allowed for each sniffed type; the first is
// used when the client's name carries none of them.
var imageExtensions = map[string][]string{
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
}

// Upload is an image received from a client.
type Upload struct {
	// Owner is the uploading user. Only they can remove the stored artifact.
	Owner       uint
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaService stores post images and removes the ones that are no longer referenced.
type MediaService struct {
	store   storage.MediaStore
	tasks   background
	newName func(original string) string
}

// NewMediaService returns a MediaService writing to store.
func NewMediaService(store storage.MediaStore) *MediaService {
	return &MediaService{
		store: store,
		newName: func(original string) string {
			return uuid.NewString() + "-" + original
		},
	}
}

// Accepts reports whether the content type is an allowed image format.
func (s *MediaService) Accepts(contentType string) bool {
	return allowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// Store saves the upload under a unique name owned by upload.Owner and returns its image
// path. The declared type and the content itself must both be an allowed image format.
func (s *MediaService) Store(ctx context.Context, upload Upload) (string, error) {
	if upload.Owner == 0 || !s.Accepts(upload.ContentType) {
		return "", models.NewMissingMediaError("No image provided.")
	}

	content, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	detected, ok := sniffImage(content)
	if !ok {
		return "", models.NewMissingMediaError("No image provided.")
	}

	original := filepath.Base(strings.ReplaceAll(upload.Filename, "\\", "/"))
	if original == "." || original == "/" {
		original = "image"
	}
	key := ownerPrefix(upload.Owner) + s.newName(withImageExtension(original, detected))

	if err := s.store.Put(ctx, key, bytes.NewReader(content), int64(len(content)), detected); err != nil {
		return "", models.NewInternalError(err)
	}
	return ImagePathPrefix + key, nil
}

// Replace stores the upload and schedules removal of oldPath when it differs and was
// stored by the same owner.
func (s *MediaService) Replace(ctx context.Context, upload Upload, oldPath string) (string, error) {
	path, err := s.Store(ctx, upload)
	if err != nil {
		return "", err
	}
	if oldPath != "" && oldPath != path {
		s.RemoveAsync(ctx, upload.Owner, oldPath)
	}
	return path, nil
}

// Open returns the stored image named name.
func (s *MediaService) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.store.Get(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, models.NewNotFoundError("Image", name)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rc, nil
}

// Remove deletes the artifact behind an image path if owner stored it. Missing or foreign
// artifacts are not an error.
func (s *MediaService) Remove(ctx context.Context, owner uint, imagePath string) error {
	key := imageKey(imagePath)
	if key == "" || owner == 0 || !strings.HasPrefix(key, ownerPrefix(owner)) {
		return nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		observability.MediaCleanupFailures.Inc()
		return err
	}
	return nil
}

// RemoveAsync deletes the artifact in the background; failures are logged only.
func (s *MediaService) RemoveAsync(ctx context.Context, owner uint, imagePath string) {
	s.tasks.Go(ctx, "media.remove", func(ctx context.Context) error {
		return s.Remove(ctx, owner, imagePath)
	})
}

// Wait blocks until scheduled removals have finished.
func (s *MediaService) Wait() {
	s.tasks.Wait()
}

func imageKey(imagePath string) string {
	p := strings.TrimPrefix(strings.ReplaceAll(imagePath, "\\", "/"), "/")
	p = strings.TrimPrefix(p, ImagePathPrefix)
	if p == "" || strings.Contains(p, "://") {
		return ""
	}
	return filepath.Base(p)
}

func ownerPrefix(owner uint) string {
	return strconv.FormatUint(uint64(owner), 10) + "_"
}

// sniffImage returns the detected type of content when it is an allowed image that decodes.
func sniffImage(content []byte) (string, bool) {
	detected := http.DetectContentType(content)
	if !allowedImageTypes[detected] {
		return "", false
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(content)); err != nil {
		return "", false
	}
	return detected, true
}

// withImageExtension makes the stored name's extension match the sniffed type, since
// images are served by extension.
func withImageExtension(name, detected string) string {
	ext := filepath.Ext(name)
	allowed := imageExtensions[detected]
	for _, e := range allowed {
		if strings.EqualFold(ext, e) {
			return name
		}
	}
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "image"
	}
	return base + allowed[0]
}
