package repository

import (
	"context"
	"sort"
	"sync"

	"tubegate/internal/ids"
	"tubegate/internal/models"
)

// MemoryStore backs users, videos and watch events with maps. It is used by
// STORE_DRIVER=memory and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	videos  map[string]models.Video
	watches []models.WatchEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		videos:  make(map[string]models.Video),
	}
}

func (s *MemoryStore) Users() *MemoryUsers   { return &MemoryUsers{s} }
func (s *MemoryStore) Videos() *MemoryVideos { return &MemoryVideos{s} }
func (s *MemoryStore) Watches() *MemoryWatches {
	return &MemoryWatches{s}
}

type MemoryUsers struct{ s *MemoryStore }

func (r *MemoryUsers) Create(_ context.Context, user models.User) error {
	user.Email = models.NormalizeEmail(user.Email)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}
	r.s.users[user.ID] = user
	r.s.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return r.s.users[id], nil
}

func (r *MemoryUsers) GetByID(_ context.Context, id string) (models.User, error) {
	if !ids.Valid(id) {
		return models.User{}, ErrUserNotFound
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

// Delete exists for tests that need a user to disappear mid-session.
func (r *MemoryUsers) Delete(_ context.Context, id string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if user, ok := r.s.users[id]; ok {
		delete(r.s.byEmail, user.Email)
		delete(r.s.users, id)
	}
}

type MemoryVideos struct{ s *MemoryStore }

func (r *MemoryVideos) Create(_ context.Context, video models.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.videos[video.ID] = video
	return nil
}

func (r *MemoryVideos) DeleteAll(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.videos))
	r.s.videos = make(map[string]models.Video)
	return n, nil
}

func (r *MemoryVideos) GetByID(_ context.Context, id string) (models.Video, error) {
	if !ids.Valid(id) {
		return models.Video{}, ErrVideoNotFound
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	video, ok := r.s.videos[id]
	if !ok {
		return models.Video{}, ErrVideoNotFound
	}
	return video, nil
}

func (r *MemoryVideos) ActiveRecent(_ context.Context, limit int) ([]models.Video, error) {
	r.s.mu.RLock()
	active := make([]models.Video, 0, len(r.s.videos))
	for _, v := range r.s.videos {
		if v.IsActive {
			active = append(active, v)
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID < active[j].ID
	})
	if limit >= 0 && limit < len(active) {
		active = active[:limit]
	}
	return active, nil
}

type MemoryWatches struct{ s *MemoryStore }

func (r *MemoryWatches) Record(_ context.Context, event models.WatchEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.watches = append(r.s.watches, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *MemoryWatches) Events() []models.WatchEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.WatchEvent, len(r.s.watches))
	copy(out, r.s.watches)
	return out
}
