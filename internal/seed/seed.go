// Package seed creates demo users and posts for local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"feedhub/internal/models"
	"feedhub/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded user can log in with.
const DefaultPassword = "password123"

// Options tune a seeding run.
type Options struct {
	Users int
	Posts int
	// MaxDays spreads post creation times over this many days back.
	MaxDays int
	// RandSeed makes the generated content reproducible when non-zero.
	RandSeed int64
}

// PasswordHasher hashes the shared seed password once per run.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Seeder writes generated data through the repositories so post back-references
// stay consistent with what the API produces.
type Seeder struct {
	db     *gorm.DB
	users  repository.UserRepository
	posts  repository.PostRepository
	hasher PasswordHasher
	faker  *gofakeit.Faker
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, hasher PasswordHasher, randSeed int64) *Seeder {
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Seeder{
		db:     db,
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db, nil),
		hasher: hasher,
		faker:  gofakeit.New(randSeed),
	}
}

// ClearAll removes every post, back-reference and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.UserPost{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// SeedUsers creates n users sharing DefaultPassword.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]*models.User, error) {
	hash, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Email:    fmt.Sprintf("%d.%s", i, s.faker.Email()),
			Name:     s.faker.Name(),
			Password: hash,
			Status:   s.faker.Sentence(4),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", user.Email, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedPosts creates n posts spread across users round-robin.
func (s *Seeder) SeedPosts(ctx context.Context, users []*models.User, n, maxDays int) ([]*models.Post, error) {
	if len(users) == 0 || n <= 0 {
		return nil, nil
	}
	if maxDays <= 0 {
		maxDays = 30
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		owner := users[i%len(users)]
		createdAt := time.Now().
			Add(-time.Duration(s.faker.Number(0, maxDays*24)) * time.Hour).
			Add(-time.Duration(s.faker.Number(0, 59)) * time.Minute)

		post := &models.Post{
			Title:     s.faker.Sentence(5),
			Content:   s.faker.Paragraph(1, 3, 8, "\n"),
			ImageURL:  fmt.Sprintf("https://picsum.photos/seed/%s/800/600", s.faker.UUID()),
			CreatorID: owner.ID,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		if err := s.users.AppendPost(ctx, owner.ID, post.ID); err != nil {
			return nil, fmt.Errorf("link post %d: %w", post.ID, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Run seeds opts.Users users and opts.Posts posts.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	users, err := s.SeedUsers(ctx, opts.Users)
	if err != nil {
		return err
	}
	_, err = s.SeedPosts(ctx, users, opts.Posts, opts.MaxDays)
	return err
}
