package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/dnt-org/dnt-be/internal/core/domain"
	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/repository"
)

// ProfileService serves read-only account lookups for authenticated callers.
type ProfileService struct {
	repo port.AccountRepository
}

// NewProfileService wires the profile lookup.
func NewProfileService(repo port.AccountRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// Get returns the sanitized account for the given CCCD.
func (s *ProfileService) Get(ctx context.Context, cccd string) (*domain.Account, error) {
	if cccd == "" {
		return nil, &ValidationError{Field: "cccd", Message: "is required"}
	}

	account, err := s.repo.GetByCCCD(ctx, cccd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}
