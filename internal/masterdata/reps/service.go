package reps

import (
	"context"
	"fmt"
	"strings"

	"github.com/mizan-erp/mizan-erp/internal/shared"
)

// Input is the payload for creating or updating a rep.
type Input struct {
	NameAr            string  `json:"name_ar" validate:"required,max=255"`
	Phone             string  `json:"phone" validate:"max=32"`
	CommissionPercent float64 `json:"commission_percent" validate:"gte=0,lte=100"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Rep, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) Get(ctx context.Context, id int64) (Rep, error) {
	if id <= 0 {
		return Rep{}, fmt.Errorf("%w: invalid rep id", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input Input) (Rep, error) {
	return s.repo.Create(ctx, Rep{
		NameAr:            strings.TrimSpace(input.NameAr),
		Phone:             strings.TrimSpace(input.Phone),
		CommissionPercent: input.CommissionPercent,
	})
}

func (s *Service) Update(ctx context.Context, id int64, input Input) (Rep, error) {
	err := s.repo.Update(ctx, id, Rep{
		NameAr:            strings.TrimSpace(input.NameAr),
		Phone:             strings.TrimSpace(input.Phone),
		CommissionPercent: input.CommissionPercent,
	})
	if err != nil {
		return Rep{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
