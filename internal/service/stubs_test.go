package service

import (
	"context"
	"sync"

	"feedhub/internal/models"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn  func(context.Context, *models.Post) error
	getByIDFn func(context.Context, uint) (*models.Post, error)
	listFn    func(context.Context, int, int) ([]*models.Post, error)
	countFn   func(context.Context) (int64, error)
	updateFn  func(context.Context, *models.Post) error
	deleteFn  func(context.Context, uint) error
	sharedFn  func(context.Context, string, uint) (int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	return s.listFn(ctx, offset, limit)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func (s *postRepoStub) CountByImage(ctx context.Context, imageURL string, excludeID uint) (int64, error) {
	return s.sharedFn(ctx, imageURL, excludeID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		countFn:   func(_ context.Context) (int64, error) { return 0, nil },
		updateFn:  func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:  func(_ context.Context, _ uint) error { return nil },
		sharedFn:  func(_ context.Context, _ string, _ uint) (int64, error) { return 0, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.User, error)
	getByEmailFn   func(context.Context, string) (*models.User, error)
	createFn       func(context.Context, *models.User) error
	updateStatusFn func(context.Context, uint, string) (*models.User, error)
	getSummariesFn func(context.Context, []uint) (map[uint]models.UserSummary, error)
	appendPostFn   func(context.Context, uint, uint) error
	removePostFn   func(context.Context, uint, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateStatus(ctx context.Context, id uint, status string) (*models.User, error) {
	return s.updateStatusFn(ctx, id, status)
}
func (s *userRepoStub) GetSummaries(ctx context.Context, ids []uint) (map[uint]models.UserSummary, error) {
	return s.getSummariesFn(ctx, ids)
}
func (s *userRepoStub) AppendPost(ctx context.Context, userID, postID uint) error {
	return s.appendPostFn(ctx, userID, postID)
}
func (s *userRepoStub) RemovePost(ctx context.Context, userID, postID uint) error {
	return s.removePostFn(ctx, userID, postID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "Writer"}, nil
		},
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", email)
		},
		createFn: func(_ context.Context, _ *models.User) error { return nil },
		updateStatusFn: func(_ context.Context, id uint, status string) (*models.User, error) {
			return &models.User{ID: id, Status: status}, nil
		},
		getSummariesFn: func(_ context.Context, ids []uint) (map[uint]models.UserSummary, error) {
			out := make(map[uint]models.UserSummary, len(ids))
			for _, id := range ids {
				out[id] = models.UserSummary{ID: id, Name: "Writer"}
			}
			return out, nil
		},
		appendPostFn: func(_ context.Context, _, _ uint) error { return nil },
		removePostFn: func(_ context.Context, _, _ uint) error { return nil },
	}
}

type broadcastEvent struct {
	Action  string
	Payload any
}

// notifierStub records broadcasts.
type notifierStub struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (n *notifierStub) Broadcast(_ context.Context, action string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, broadcastEvent{Action: action, Payload: payload})
}

func (n *notifierStub) Events() []broadcastEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]broadcastEvent(nil), n.events...)
}

// removerStub records scheduled artifact removals.
type removerStub struct {
	mu     sync.Mutex
	paths  []string
	owners []uint
}

func (r *removerStub) RemoveAsync(_ context.Context, owner uint, imagePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, imagePath)
	r.owners = append(r.owners, owner)
}

func (r *removerStub) Owners() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.owners...)
}

func (r *removerStub) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func actor(id uint) *models.Identity {
	return &models.Identity{UserID: id, Email: "writer@example.com"}
}
