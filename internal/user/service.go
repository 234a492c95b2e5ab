package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/wichananm65/user-registry/internal/notify"
	"github.com/wichananm65/user-registry/internal/upload"
)

// ErrStorage marks a picture that passed validation but could not be
// persisted.
var ErrStorage = errors.New("picture storage failed")

// Service runs the user use cases over a Repository, a picture Store and a
// Notifier.
type Service struct {
	repo     Repository
	pictures upload.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService falls back to notify.Disabled and slog.Default for nil arguments.
func NewService(repo Repository, pictures upload.Store, notifier notify.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pictures: pictures, notifier: notifier, logger: logger}
}

// List returns every user, newest first.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// GetByID returns ErrNotFound for ids that cannot exist.
func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	if !validID(id) {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Register stores a new user and then tries to send the confirmation email.
// The bool reports whether the email went out.
func (s *Service) Register(ctx context.Context, in Input, picture *multipart.FileHeader) (User, bool, error) {
	in = in.normalize()
	if err := in.Validate(); err != nil {
		return User{}, false, err
	}

	name, err := s.storePicture(ctx, picture)
	if err != nil {
		return User{}, false, err
	}

	created, err := s.repo.Create(ctx, User{
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		ProfilePicture: name,
	})
	if err != nil {
		s.discardPicture(ctx, name)
		return User{}, false, err
	}

	emailSent := true
	if err := s.notifier.SendRegistration(ctx, created.Email, created.Name); err != nil {
		emailSent = false
		if errors.Is(err, notify.ErrDisabled) {
			s.logger.Debug("registration email skipped", "user_id", created.ID)
		} else {
			s.logger.Warn("registration email failed", "user_id", created.ID, "error", err)
		}
	}

	return created, emailSent, nil
}

// Update overwrites name, email and phone. The stored picture is replaced only
// when a new one is uploaded.
func (s *Service) Update(ctx context.Context, id int, in Input, picture *multipart.FileHeader) error {
	if !validID(id) {
		return ErrNotFound
	}
	in = in.normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	name, err := s.storePicture(ctx, picture)
	if err != nil {
		return err
	}

	err = s.repo.Update(ctx, id, User{
		Name:           in.Name,
		Email:          in.Email,
		Phone:          in.Phone,
		ProfilePicture: name,
	})
	if err != nil {
		s.discardPicture(ctx, name)
		return err
	}
	return nil
}

// Delete removes the user row; the stored picture is kept.
func (s *Service) Delete(ctx context.Context, id int) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) storePicture(ctx context.Context, fh *multipart.FileHeader) (*string, error) {
	if fh == nil {
		return nil, nil
	}
	if s.pictures == nil {
		return nil, fmt.Errorf("%w: no store configured", ErrStorage)
	}

	name, err := s.pictures.Save(ctx, fh)
	if err != nil {
		if errors.Is(err, upload.ErrInvalidFile) || errors.Is(err, upload.ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &name, nil
}

func (s *Service) discardPicture(ctx context.Context, name *string) {
	if name == nil {
		return
	}
	if err := s.pictures.Remove(ctx, *name); err != nil {
		s.logger.Warn("remove orphaned picture", "file", *name, "error", err)
	}
}
