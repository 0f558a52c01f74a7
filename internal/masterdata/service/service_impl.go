package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/clock"
	"github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("masterdata.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) CreateCompany(ctx context.Context, req domain.CreateCompanyRequest) (*domain.Company, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	record := &domain.Company{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) SetCompanyDefaults(ctx context.Context, req domain.SetCompanyDefaultsRequest) (*domain.Company, error) {
	company, err := s.repo.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	if req.DefaultTaxAccountID != nil {
		if err := s.requireAccount(ctx, company.ID, *req.DefaultTaxAccountID); err != nil {
			return nil, err
		}
	}
	if req.DefaultJournalID != nil {
		journal, err := s.repo.GetJournal(ctx, *req.DefaultJournalID)
		if err != nil {
			return nil, err
		}
		if journal == nil || journal.CompanyID != company.ID || journal.Type != domain.JournalTypeGeneral {
			return nil, domain.ErrInvalidJournal
		}
	}
	if err := s.repo.UpdateCompanyDefaults(ctx, company.ID, req.DefaultTaxAccountID, req.DefaultJournalID); err != nil {
		return nil, err
	}
	company.DefaultTaxAccountID = req.DefaultTaxAccountID
	company.DefaultJournalID = req.DefaultJournalID
	return company, nil
}

func (s *Service) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	accountType := domain.AccountType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if !accountType.Valid() {
		return nil, domain.ErrInvalidAccountType
	}
	record := &domain.Account{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		Code:      code,
		Name:      name,
		Type:      accountType,
		CreatedAt: s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListAccounts(ctx context.Context, companyID snowflake.ID) ([]*domain.Account, error) {
	return s.repo.ListAccounts(ctx, companyID)
}

func (s *Service) CreateJournal(ctx context.Context, req domain.CreateJournalRequest) (*domain.Journal, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	journalType := domain.JournalType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if !journalType.Valid() {
		return nil, domain.ErrInvalidJournalType
	}
	if req.DefaultAccountID != nil {
		if err := s.requireAccount(ctx, req.CompanyID, *req.DefaultAccountID); err != nil {
			return nil, err
		}
	}
	record := &domain.Journal{
		ID:               s.genID.Generate(),
		CompanyID:        req.CompanyID,
		Code:             code,
		Name:             name,
		Type:             journalType,
		DefaultAccountID: req.DefaultAccountID,
		Active:           true,
		CreatedAt:        s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListJournals(ctx context.Context, companyID snowflake.ID) ([]*domain.Journal, error) {
	return s.repo.ListJournals(ctx, companyID)
}

func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	record := &domain.Project{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListProjects(ctx context.Context, companyID snowflake.ID) ([]*domain.Project, error) {
	return s.repo.ListProjects(ctx, companyID)
}

func (s *Service) CreateWorkType(ctx context.Context, req domain.CreateWorkTypeRequest) (*domain.WorkType, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	record := &domain.WorkType{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListWorkTypes(ctx context.Context) ([]*domain.WorkType, error) {
	return s.repo.ListWorkTypes(ctx)
}

func (s *Service) CreateContractor(ctx context.Context, req domain.CreateContractorRequest) (*domain.Contractor, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if err := s.requireCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}
	for _, accountID := range []*snowflake.ID{req.PayableAccountID, req.ReceivableAccountID} {
		if accountID == nil {
			continue
		}
		if err := s.requireAccount(ctx, req.CompanyID, *accountID); err != nil {
			return nil, err
		}
	}
	isCompany := true
	if req.IsCompany != nil {
		isCompany = *req.IsCompany
	}
	record := &domain.Contractor{
		ID:                  s.genID.Generate(),
		CompanyID:           req.CompanyID,
		Name:                name,
		IsCompany:           isCompany,
		PayableAccountID:    req.PayableAccountID,
		ReceivableAccountID: req.ReceivableAccountID,
		Active:              true,
		CreatedAt:           s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListContractors(ctx context.Context, companyID snowflake.ID) ([]*domain.Contractor, error) {
	return s.repo.ListContractors(ctx, companyID)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, domain.ErrInvalidUnit
	}
	workType, err := s.repo.GetWorkType(ctx, req.WorkTypeID)
	if err != nil {
		return nil, err
	}
	if workType == nil {
		return nil, domain.ErrInvalidWorkType
	}
	accountType := domain.ProductAccountType(strings.ToLower(strings.TrimSpace(string(req.AccountType))))
	switch accountType {
	case "":
		accountType = domain.ProductAccountIn
	case domain.ProductAccountIn, domain.ProductAccountOut:
	default:
		return nil, domain.ErrInvalidAccountType
	}
	record := &domain.Product{
		ID:           s.genID.Generate(),
		Code:         code,
		Name:         name,
		Unit:         unit,
		WorkTypeID:   workType.ID,
		AccountType:  accountType,
		InAccountID:  req.InAccountID,
		OutAccountID: req.OutAccountID,
		Active:       true,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListProducts(ctx context.Context, workTypeID *snowflake.ID) ([]*domain.Product, error) {
	return s.repo.ListProducts(ctx, workTypeID)
}

func (s *Service) CreatePaymentMethod(ctx context.Context, req domain.CreatePaymentMethodRequest) (*domain.PaymentMethod, error) {
	code, name, err := normalizeCodeName(req.Code, req.Name)
	if err != nil {
		return nil, err
	}
	journal, err := s.repo.GetJournal(ctx, req.JournalID)
	if err != nil {
		return nil, err
	}
	if journal == nil || (journal.Type != domain.JournalTypeBank && journal.Type != domain.JournalTypeCash) {
		return nil, domain.ErrInvalidJournal
	}
	paymentType := domain.PaymentType(strings.ToLower(strings.TrimSpace(string(req.PaymentType))))
	switch paymentType {
	case "":
		paymentType = domain.PaymentTypeBoth
	case domain.PaymentTypeInbound, domain.PaymentTypeOutbound, domain.PaymentTypeBoth:
	default:
		return nil, domain.ErrInvalidPaymentType
	}
	record := &domain.PaymentMethod{
		ID:          s.genID.Generate(),
		Code:        code,
		Name:        name,
		JournalID:   journal.ID,
		PaymentType: paymentType,
		Active:      true,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx)
}

func (s *Service) create(ctx context.Context, record any) error {
	if err := s.repo.Create(ctx, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrDuplicateCode
		}
		s.log.Error("failed to create master data record", zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) requireCompany(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidCompany
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return err
	}
	if company == nil {
		return domain.ErrInvalidCompany
	}
	return nil
}

func (s *Service) requireAccount(ctx context.Context, companyID, id snowflake.ID) error {
	account, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if account == nil || account.CompanyID != companyID {
		return domain.ErrInvalidAccount
	}
	return nil
}

func normalizeCodeName(code, name string) (string, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", "", domain.ErrInvalidCode
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", domain.ErrInvalidName
	}
	return code, name, nil
}
