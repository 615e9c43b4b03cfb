package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/odyssey-erp/fatoora/internal/shared"
)

// RepositoryPort defines data access methods for clients.
type RepositoryPort interface {
	Create(ctx context.Context, tenantID uuid.UUID, in Input) (Client, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (Client, error)
	List(ctx context.Context, tenantID uuid.UUID, f ListFilter, limit, offset int) ([]Client, int, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, in Input) (Client, error)
	SetDeleted(ctx context.Context, tenantID, id uuid.UUID, deleted bool) error
}

// Service handles client business logic.
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

// Create validates and stores a client.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, in Input) (Client, error) {
	in = in.normalized()
	if err := shared.Validate(in); err != nil {
		return Client{}, err
	}
	c, err := s.repo.Create(ctx, tenantID, in)
	if err != nil {
		return Client{}, fmt.Errorf("clients: create: %w", err)
	}
	return c, nil
}

// Get returns a client, including soft deleted ones so old invoices resolve.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Client, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// GetInvoiceable returns the client only if new invoices may reference it.
func (s *Service) GetInvoiceable(ctx context.Context, tenantID, id uuid.UUID) (Client, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Client{}, err
	}
	if !c.Invoiceable() {
		return Client{}, ErrClientUnavailable
	}
	return c, nil
}

// List returns a page of clients.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]Client, shared.Pagination, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	items, total, err := s.repo.List(ctx, tenantID, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("clients: list: %w", err)
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Update edits a live client.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, in Input) (Client, error) {
	in = in.normalized()
	if err := shared.Validate(in); err != nil {
		return Client{}, err
	}
	return s.repo.Update(ctx, tenantID, id, in)
}

// SoftDelete hides the client. Its invoices keep the reference.
func (s *Service) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.SetDeleted(ctx, tenantID, id, true); err != nil {
		return err
	}
	s.logger.Info("client deleted", slog.String("tenant_id", tenantID.String()), slog.String("client_id", id.String()))
	return nil
}

// Restore undoes SoftDelete.
func (s *Service) Restore(ctx context.Context, tenantID, id uuid.UUID) (Client, error) {
	c, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Client{}, err
	}
	if c.DeletedAt == nil {
		return Client{}, ErrNotDeleted
	}
	if err := s.repo.SetDeleted(ctx, tenantID, id, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Client{}, ErrNotDeleted
		}
		return Client{}, err
	}
	return s.repo.Get(ctx, tenantID, id)
}

// All walks every page of the filtered list, for exports.
func (s *Service) All(ctx context.Context, tenantID uuid.UUID, f ListFilter) ([]Client, error) {
	var out []Client
	f.PerPage = shared.MaxPerPage
	for f.Page = 1; ; f.Page++ {
		items, page, err := s.List(ctx, tenantID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if f.Page >= page.TotalPages {
			return out, nil
		}
	}
}
