package app

import (
	"context"

	"github.com/stacksapp/circulation/internal/clock"
	"github.com/stacksapp/circulation/internal/domain"
)

type CatalogRepository interface {
	CreateMember(ctx context.Context, member domain.Member) error
	ListMembers(ctx context.Context) ([]domain.Member, error)
	UpdateMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error
	CreateTitle(ctx context.Context, title domain.Title) error
	ListTitles(ctx context.Context) ([]domain.Title, error)
	CreateCopy(ctx context.Context, c domain.Copy) error
	ListCopiesByTitle(ctx context.Context, titleID string) ([]domain.Copy, error)
}

// CatalogService is the minimal admin surface the circulation engine
// needs populated: members, titles and their copies.
type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
	newID IDGenerator
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
		newID: newUUID,
	}
}

type CreateMemberInput struct {
	Name  string
	Email string
}

func (s *CatalogService) CreateMember(ctx context.Context, in CreateMemberInput) (domain.Member, error) {
	if in.Name == "" {
		return domain.Member{}, domain.ErrMemberNameRequired
	}

	member := domain.Member{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Status:    domain.MemberStatusActive,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		return domain.Member{}, err
	}
	return member, nil
}

func (s *CatalogService) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx)
}

func (s *CatalogService) SetMemberStatus(ctx context.Context, memberID, status string) error {
	if memberID == "" {
		return domain.ErrInvalidID
	}
	if !domain.ValidMemberStatus(status) {
		return domain.ErrInvalidStatus
	}
	return s.repo.UpdateMemberStatus(ctx, memberID, domain.MemberStatus(status))
}

type CreateTitleInput struct {
	Name   string
	Author string
	ISBN   string
}

func (s *CatalogService) CreateTitle(ctx context.Context, in CreateTitleInput) (domain.Title, error) {
	if in.Name == "" {
		return domain.Title{}, domain.ErrTitleNameRequired
	}

	title := domain.Title{
		ID:        s.newID(),
		Name:      in.Name,
		Author:    in.Author,
		ISBN:      in.ISBN,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateTitle(ctx, title); err != nil {
		return domain.Title{}, err
	}
	return title, nil
}

func (s *CatalogService) ListTitles(ctx context.Context) ([]domain.Title, error) {
	return s.repo.ListTitles(ctx)
}

type AddCopyInput struct {
	TitleID string
	Barcode string
}

func (s *CatalogService) AddCopy(ctx context.Context, in AddCopyInput) (domain.Copy, error) {
	if in.TitleID == "" {
		return domain.Copy{}, domain.ErrInvalidID
	}
	if in.Barcode == "" {
		return domain.Copy{}, domain.ErrBarcodeRequired
	}

	c := domain.Copy{
		ID:        s.newID(),
		TitleID:   in.TitleID,
		Barcode:   in.Barcode,
		Status:    domain.CopyStatusAvailable,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateCopy(ctx, c); err != nil {
		return domain.Copy{}, err
	}
	return c, nil
}

func (s *CatalogService) ListCopies(ctx context.Context, titleID string) ([]domain.Copy, error) {
	if titleID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListCopiesByTitle(ctx, titleID)
}
