package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/clock"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       taxdomain.Repository
	MasterData masterdomain.Repository
	Clock      clock.Clock
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       taxdomain.Repository
	masterData masterdomain.Repository
	clock      clock.Clock
}

func NewService(p ServiceParams) taxdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("tax.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		masterData: p.MasterData,
		clock:      p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req taxdomain.CreateRequest) (*taxdomain.Tax, error) {
	if req.CompanyID == 0 {
		return nil, taxdomain.ErrInvalidCompany
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, taxdomain.ErrInvalidName
	}
	if req.AccountID != nil {
		account, err := s.masterData.GetAccount(ctx, *req.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil || account.CompanyID != req.CompanyID {
			return nil, taxdomain.ErrInvalidAccount
		}
	}

	now := s.clock.Now()
	record := &taxdomain.Tax{
		ID:         s.genID.Generate(),
		CompanyID:  req.CompanyID,
		Name:       name,
		AmountType: taxdomain.AmountType(strings.ToLower(strings.TrimSpace(string(req.AmountType)))),
		Amount:     req.Amount,
		AccountID:  req.AccountID,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]taxdomain.Tax, error) {
	if companyID == 0 {
		return nil, taxdomain.ErrInvalidCompany
	}
	return s.repo.List(ctx, s.db, companyID, false)
}

func (s *Service) Disable(ctx context.Context, id snowflake.ID) (*taxdomain.Tax, error) {
	tax, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tax == nil {
		return nil, taxdomain.ErrNotFound
	}
	if err := s.repo.SetActive(ctx, s.db, id, false); err != nil {
		return nil, err
	}
	tax.Active = false
	return tax, nil
}
