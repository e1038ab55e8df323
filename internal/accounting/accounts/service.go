package accounts

import (
	"context"
	"fmt"

	sharedpkg "github.com/mizan-erp/mizan-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// CreateInput carries fields for a new chart-of-accounts node.
type CreateInput struct {
	Code     string      `json:"code" validate:"required,max=20"`
	Name     string      `json:"name" validate:"required,max=200"`
	NameAr   string      `json:"name_ar" validate:"max=200"`
	Type     AccountType `json:"type" validate:"required"`
	ParentID *int64      `json:"parent_id,omitempty"`
}

func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	if !input.Type.IsValid() {
		return Account{}, fmt.Errorf("%w: unknown account type %q", sharedpkg.ErrValidation, input.Type)
	}
	if input.ParentID != nil {
		parent, err := s.repo.Get(ctx, *input.ParentID)
		if err != nil {
			return Account{}, fmt.Errorf("verify parent: %w", err)
		}
		if parent.Type != input.Type {
			return Account{}, fmt.Errorf("%w: parent account type mismatch", sharedpkg.ErrValidation)
		}
	}
	account := Account{
		Code:     input.Code,
		Name:     input.Name,
		NameAr:   input.NameAr,
		Type:     input.Type,
		ParentID: input.ParentID,
		IsActive: true,
	}
	id, err := s.repo.Create(ctx, account)
	if err != nil {
		return Account{}, err
	}
	return s.repo.Get(ctx, id)
}

// UpdateInput carries mutable account fields.
type UpdateInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	NameAr   string `json:"name_ar" validate:"max=200"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Account, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	current.Name = input.Name
	current.NameAr = input.NameAr
	current.ParentID = input.ParentID
	if err := s.repo.Update(ctx, current); err != nil {
		return Account{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
