package user

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Repository and validation errors, matched with errors.Is.
var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("email already exists")
	ErrValidation  = errors.New("name, email, and phone are required")
)

// Repository persists users. Update leaves the stored picture untouched when
// user.ProfilePicture is nil.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, id int, user User) error
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository keeps users in a slice guarded by a mutex and enforces
// the same email uniqueness as the users table.
type InMemoryRepository struct {
	mu     sync.RWMutex
	users  []User
	nextID int
	now    func() time.Time
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:  make([]User, 0, len(seed)),
		nextID: 1,
		now:    time.Now,
	}

	maxID := 0
	for _, user := range seed {
		repo.users = append(repo.users, cloneUser(user))
		if user.ID > maxID {
			maxID = user.ID
		}
	}

	repo.nextID = maxID + 1
	return repo
}

func (r *InMemoryRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, cloneUser(user))
	}
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return cloneUser(user), nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(user.Email, 0) {
		return User{}, ErrEmailExists
	}

	user = cloneUser(user)
	user.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users = append(r.users, user)
	return cloneUser(user), nil
}

func (r *InMemoryRepository) Update(_ context.Context, id int, update User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID != id {
			continue
		}
		if r.emailTaken(update.Email, id) {
			return ErrEmailExists
		}

		user.Name = update.Name
		user.Email = update.Email
		user.Phone = update.Phone
		if update.ProfilePicture != nil {
			user.ProfilePicture = clonePicture(update.ProfilePicture)
		}
		user.UpdatedAt = r.now().UTC()
		r.users[i] = user
		return nil
	}

	return ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

// emailTaken must be called with r.mu held.
func (r *InMemoryRepository) emailTaken(email string, exceptID int) bool {
	for _, user := range r.users {
		if user.ID != exceptID && user.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(user User) User {
	user.ProfilePicture = clonePicture(user.ProfilePicture)
	return user
}

func clonePicture(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
