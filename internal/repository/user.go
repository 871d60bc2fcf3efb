// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"feedhub/internal/database"
	"feedhub/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users and their post references.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id uint, status string) (*models.User, error)
	GetSummaries(ctx context.Context, ids []uint) (map[uint]models.UserSummary, error)
	AppendPost(ctx context.Context, userID, postID uint) error
	RemovePost(ctx context.Context, userID, postID uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func readDB(primary *gorm.DB) *gorm.DB {
	if db := database.Replica(); db != nil {
		return db
	}
	return primary
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}

	postIDs, err := r.postIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Posts = postIDs
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", email)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("User already exists!")
		}
		return models.NewInternalError(err)
	}
	user.Posts = []uint{}
	return nil
}

// isUniqueViolation reports a duplicate email. Postgres signals it with
// SQLSTATE 23505; SQLite only through the message text.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uint, status string) (*models.User, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return nil, models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	// Read back from the primary so the caller sees its own write.
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	postIDs, err := r.postIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Posts = postIDs
	return &user, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []uint) (map[uint]models.UserSummary, error) {
	summaries := make(map[uint]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).
		Select("id", "name").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, u := range users {
		summaries[u.ID] = models.UserSummary{ID: u.ID, Name: u.Name}
	}
	return summaries, nil
}

func (r *userRepository) AppendPost(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).Create(&models.UserPost{UserID: userID, PostID: postID}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) RemovePost(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.UserPost{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) postIDs(ctx context.Context, userID uint) ([]uint, error) {
	postIDs := []uint{}
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.UserPost{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("post_id", &postIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return postIDs, nil
}
