package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/deduction/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	pkgdb "github.com/smallbiznis/sitebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	MasterData masterdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	masterData masterdomain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("deduction.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		masterData: p.MasterData,
	}
}

// Resolve returns the most specific active config: exact project and work
// type, then project only, then work type only, then the company default.
func (s *Service) Resolve(ctx context.Context, tx *gorm.DB, companyID, projectID, workTypeID snowflake.ID) (*domain.Config, error) {
	exact := domain.ScopeKey(&projectID, &workTypeID)
	projectOnly := domain.ScopeKey(&projectID, nil)
	workTypeOnly := domain.ScopeKey(nil, &workTypeID)
	rank := map[string]int{exact: 0, projectOnly: 1, workTypeOnly: 2}

	candidates, err := s.repo.WithTx(tx).FindCandidates(ctx, companyID, []string{exact, projectOnly, workTypeOnly})
	if err != nil {
		return nil, err
	}

	var best *domain.Config
	bestRank := 4
	for _, cfg := range candidates {
		r := 3
		if cfg.ScopeKey != nil {
			if scoped, ok := rank[*cfg.ScopeKey]; ok {
				r = scoped
			} else if cfg.DefaultSlot == nil {
				continue
			}
		}
		if r < bestRank {
			best, bestRank = cfg, r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: project %s, work type %s", domain.ErrNoConfig, projectID, workTypeID)
	}
	return best, nil
}

func (s *Service) Create(ctx context.Context, req domain.ConfigRequest) (*domain.Config, error) {
	if req.CompanyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	now := s.clock.Now()
	cfg := &domain.Config{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		Active:    true,
		CreatedAt: now,
	}
	if err := s.apply(ctx, cfg, req); err != nil {
		return nil, err
	}
	cfg.UpdatedAt = now
	cfg.ApplySlots()

	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, s.classify(ctx, cfg, err)
	}
	s.log.Info("deduction config created",
		zap.String("config_id", cfg.ID.String()),
		zap.Bool("is_default", cfg.IsDefault),
	)
	return cfg, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.ConfigRequest) (*domain.Config, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, cfg, req); err != nil {
		return nil, err
	}
	cfg.UpdatedAt = s.clock.Now()
	cfg.ApplySlots()
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, s.classify(ctx, cfg, err)
	}
	return cfg, nil
}

// SetDefault moves the company default slot to id in one transaction.
func (s *Service) SetDefault(ctx context.Context, id snowflake.ID) (*domain.Config, error) {
	var target *domain.Config
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cfg, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if cfg == nil {
			return domain.ErrNotFound
		}
		if !cfg.Active {
			return domain.ErrInactiveConfig
		}
		now := s.clock.Now()

		current, err := repo.FindDefault(ctx, cfg.CompanyID)
		if err != nil {
			return err
		}
		if current != nil && current.ID != cfg.ID {
			current.IsDefault = false
			current.UpdatedAt = now
			current.ApplySlots()
			if err := repo.Save(ctx, current); err != nil {
				return err
			}
		}

		cfg.IsDefault = true
		cfg.UpdatedAt = now
		cfg.ApplySlots()
		if err := repo.Save(ctx, cfg); err != nil {
			return err
		}
		target = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// Deactivate releases the config's scope and default slot.
func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.Config, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg.Active = false
	cfg.UpdatedAt = s.clock.Now()
	cfg.ApplySlots()
	if err := s.repo.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Config, error) {
	cfg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

func (s *Service) List(ctx context.Context, companyID snowflake.ID) ([]*domain.Config, error) {
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *Service) apply(ctx context.Context, cfg *domain.Config, req domain.ConfigRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if req.ProjectID == nil && req.WorkTypeID == nil && !req.IsDefault {
		return domain.ErrInvalidScope
	}
	if req.RetentionPercentage.IsNegative() || req.RetentionPercentage.GreaterThan(hundred) {
		return domain.ErrInvalidPercentage
	}
	for _, accountID := range []*snowflake.ID{req.AdvanceAccountID, req.RetentionAccountID, req.OtherAccountID} {
		if accountID == nil {
			continue
		}
		account, err := s.masterData.GetAccount(ctx, *accountID)
		if err != nil {
			return err
		}
		if account == nil || account.CompanyID != cfg.CompanyID {
			return domain.ErrInvalidAccount
		}
	}

	cfg.Name = name
	cfg.ProjectID = req.ProjectID
	cfg.WorkTypeID = req.WorkTypeID
	cfg.IsDefault = req.IsDefault
	cfg.RetentionPercentage = req.RetentionPercentage.Round(4)
	cfg.AdvanceAccountID = req.AdvanceAccountID
	cfg.RetentionAccountID = req.RetentionAccountID
	cfg.OtherAccountID = req.OtherAccountID
	return nil
}

// classify turns a unique index violation into the slot that was taken.
func (s *Service) classify(ctx context.Context, cfg *domain.Config, err error) error {
	if !pkgdb.IsDuplicateKeyErr(err) {
		return err
	}
	if cfg.ScopeKey != nil {
		existing, lookupErr := s.repo.FindByScopeKey(ctx, cfg.CompanyID, *cfg.ScopeKey)
		if lookupErr == nil && existing != nil && existing.ID != cfg.ID {
			return domain.ErrDuplicateScope
		}
	}
	return domain.ErrDuplicateDefault
}
