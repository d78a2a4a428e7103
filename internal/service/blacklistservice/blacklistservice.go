package blacklistservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/internal/events"
)

type Repo interface {
	Upsert(ctx context.Context, entry *domain.BlacklistEntry) error
	Delete(ctx context.Context, userID string) (bool, error)
	FindByUserID(ctx context.Context, userID string) (*domain.BlacklistEntry, error)
	List(ctx context.Context) ([]domain.BlacklistEntry, error)
}

type Service struct {
	repo      Repo
	publisher events.Publisher
	now       func() time.Time
}

func New(repo Repo, publisher events.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// Add blocks userID. A zero duration blocks permanently.
func (s *Service) Add(ctx context.Context, userID, reason string, duration time.Duration) (*domain.BlacklistEntry, error) {
	if userID == "" || duration < 0 {
		return nil, domain.ErrInvalidInput
	}
	now := s.now()
	entry := &domain.BlacklistEntry{
		UserID:    userID,
		Reason:    reason,
		CreatedAt: now,
	}
	if duration > 0 {
		expires := now.Add(duration)
		entry.ExpiresAt = &expires
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		zap.L().Error("failed to blacklist user", zap.String("userID", userID), zap.Error(err))
		return nil, err
	}
	zap.L().Info("user blacklisted", zap.String("userID", userID), zap.Duration("duration", duration))
	events.Emit(ctx, s.publisher, events.Event{Type: events.UserBlacklisted, UserID: userID, Reference: reason})
	return entry, nil
}

func (s *Service) Remove(ctx context.Context, userID string) error {
	removed, err := s.repo.Delete(ctx, userID)
	if err != nil {
		zap.L().Error("failed to remove blacklist entry", zap.String("userID", userID), zap.Error(err))
		return err
	}
	if !removed {
		return domain.ErrUserNotFound
	}
	events.Emit(ctx, s.publisher, events.Event{Type: events.UserUnblacklisted, UserID: userID})
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.BlacklistEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		zap.L().Error("failed to list blacklist", zap.Error(err))
		return nil, err
	}
	return entries, nil
}

// CheckAllowed fails with ErrUserBlacklisted while an entry for userID is active.
func (s *Service) CheckAllowed(ctx context.Context, userID string) error {
	entry, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to check blacklist", zap.String("userID", userID), zap.Error(err))
		return err
	}
	if entry != nil && entry.ActiveAt(s.now()) {
		return fmt.Errorf("%w: %s", domain.ErrUserBlacklisted, entry.Reason)
	}
	return nil
}
