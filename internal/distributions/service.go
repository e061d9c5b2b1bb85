package distributions

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/pagination"
)

// Service is the read side of the distribution ledger.
type Service interface {
	RecordsForDeposit(ctx context.Context, depositID int64) ([]DistributionDTO, error)
	RecordsForBeneficiary(ctx context.Context, userID int64) ([]DistributionDTO, error)
	ListForBeneficiary(ctx context.Context, userID int64, params pagination.Params) (*ListResult, error)
	SummaryForBeneficiary(ctx context.Context, userID int64) (*Summary, error)
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("distribution repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordsForDeposit(ctx context.Context, depositID int64) ([]DistributionDTO, error) {
	if depositID <= 0 {
		return nil, fmt.Errorf("deposit id is required")
	}
	rows, err := s.repo.ListByDepositID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

func (s *service) RecordsForBeneficiary(ctx context.Context, userID int64) ([]DistributionDTO, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id is required")
	}
	rows, err := s.repo.ListByBeneficiaryID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModels(rows), nil
}

func (s *service) ListForBeneficiary(ctx context.Context, userID int64, params pagination.Params) (*ListResult, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.PageByBeneficiaryID(ctx, userID, params.FetchSize(), cursor)
	if err != nil {
		return nil, err
	}

	rows, more := pagination.Split(rows, params.PageSize())
	result := &ListResult{}
	if more {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			DepositID: last.DepositID,
			Level:     last.Level,
		})
	}
	result.Distributions = FromModels(rows)
	return result, nil
}

func (s *service) SummaryForBeneficiary(ctx context.Context, userID int64) (*Summary, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("user id is required")
	}
	totals, err := s.repo.SumByLevel(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{BeneficiaryID: userID, Total: decimal.Zero, Levels: make([]LevelSummary, 0, len(totals))}
	for _, t := range totals {
		amount := t.Amount.Round(2)
		summary.Levels = append(summary.Levels, LevelSummary{Level: t.Level, Count: t.Count, Amount: amount})
		summary.Total = summary.Total.Add(amount)
	}
	return summary, nil
}
