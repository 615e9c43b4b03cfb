package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/fatoora/internal/shared"
)

// RepositoryPort defines data access methods for settings.
type RepositoryPort interface {
	Get(ctx context.Context, tenantID uuid.UUID) (Settings, error)
	Upsert(ctx context.Context, s Settings) (Settings, error)
}

// Service handles the billing profile.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Get returns the profile, or defaults when none was saved.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (Settings, error) {
	st, err := s.repo.Get(ctx, tenantID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(tenantID), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings: get: %w", err)
	}
	return st, nil
}

// Upsert validates and stores the profile.
func (s *Service) Upsert(ctx context.Context, tenantID uuid.UUID, in UpsertInput) (Settings, error) {
	in.IBAN = strings.ToUpper(strings.ReplaceAll(in.IBAN, " ", ""))
	if err := shared.Validate(in); err != nil {
		return Settings{}, err
	}
	if in.DefaultVATRate != nil && (in.DefaultVATRate.IsNegative() || in.DefaultVATRate.GreaterThan(decimal.NewFromInt(100))) {
		return Settings{}, shared.Invalid("default_vat_rate", "range")
	}
	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return Settings{}, err
	}
	saved, err := s.repo.Upsert(ctx, in.apply(current))
	if err != nil {
		return Settings{}, fmt.Errorf("settings: upsert: %w", err)
	}
	s.logger.Info("invoice settings saved",
		slog.String("tenant_id", tenantID.String()),
		slog.Bool("ready", saved.Ready()))
	return saved, nil
}
