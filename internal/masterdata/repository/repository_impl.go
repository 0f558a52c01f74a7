package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/pkg/db/option"
	"github.com/smallbiznis/sitebill/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB

	companies      repository.Repository[domain.Company]
	accounts       repository.Repository[domain.Account]
	journals       repository.Repository[domain.Journal]
	projects       repository.Repository[domain.Project]
	workTypes      repository.Repository[domain.WorkType]
	contractors    repository.Repository[domain.Contractor]
	products       repository.Repository[domain.Product]
	paymentMethods repository.Repository[domain.PaymentMethod]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{
		db:             db,
		companies:      repository.ProvideStore[domain.Company](db),
		accounts:       repository.ProvideStore[domain.Account](db),
		journals:       repository.ProvideStore[domain.Journal](db),
		projects:       repository.ProvideStore[domain.Project](db),
		workTypes:      repository.ProvideStore[domain.WorkType](db),
		contractors:    repository.ProvideStore[domain.Contractor](db),
		products:       repository.ProvideStore[domain.Product](db),
		paymentMethods: repository.ProvideStore[domain.PaymentMethod](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

func (r *repo) Create(ctx context.Context, record any) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repo) GetCompany(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	return r.companies.FindByID(ctx, id)
}

func (r *repo) FindCompanyByCode(ctx context.Context, code string) (*domain.Company, error) {
	return r.companies.FindOne(ctx, &domain.Company{Code: code})
}

func (r *repo) ListCompanies(ctx context.Context) ([]*domain.Company, error) {
	return r.companies.Find(ctx, nil, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) UpdateCompanyDefaults(ctx context.Context, id snowflake.ID, taxAccountID, journalID *snowflake.ID) error {
	return r.db.WithContext(ctx).Model(&domain.Company{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"default_tax_account_id": taxAccountID,
			"default_journal_id":     journalID,
			"updated_at":             time.Now().UTC(),
		}).Error
}

func (r *repo) GetAccount(ctx context.Context, id snowflake.ID) (*domain.Account, error) {
	return r.accounts.FindByID(ctx, id)
}

func (r *repo) FindAccountByCodeFragment(ctx context.Context, companyID snowflake.ID, fragment string) (*domain.Account, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil, nil
	}
	var account domain.Account
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND LOWER(code) LIKE ?", companyID, "%"+fragment+"%").
		Order("code asc").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) ListAccounts(ctx context.Context, companyID snowflake.ID) ([]*domain.Account, error) {
	return r.accounts.Find(ctx, &domain.Account{CompanyID: companyID}, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) GetJournal(ctx context.Context, id snowflake.ID) (*domain.Journal, error) {
	return r.journals.FindByID(ctx, id)
}

func (r *repo) FindFirstJournal(ctx context.Context, companyID snowflake.ID, journalType domain.JournalType) (*domain.Journal, error) {
	return r.journals.FindOne(ctx,
		&domain.Journal{CompanyID: companyID, Type: journalType},
		option.WithWhere("active = ?", true),
		option.WithSortBy(option.SortBy{Column: "code"}),
	)
}

func (r *repo) ListJournals(ctx context.Context, companyID snowflake.ID) ([]*domain.Journal, error) {
	return r.journals.Find(ctx, &domain.Journal{CompanyID: companyID}, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) GetProject(ctx context.Context, id snowflake.ID) (*domain.Project, error) {
	return r.projects.FindByID(ctx, id)
}

func (r *repo) ListProjects(ctx context.Context, companyID snowflake.ID) ([]*domain.Project, error) {
	return r.projects.Find(ctx, &domain.Project{CompanyID: companyID}, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) GetWorkType(ctx context.Context, id snowflake.ID) (*domain.WorkType, error) {
	return r.workTypes.FindByID(ctx, id)
}

func (r *repo) ListWorkTypes(ctx context.Context) ([]*domain.WorkType, error) {
	return r.workTypes.Find(ctx, nil, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) GetContractor(ctx context.Context, id snowflake.ID) (*domain.Contractor, error) {
	return r.contractors.FindByID(ctx, id)
}

func (r *repo) ListContractors(ctx context.Context, companyID snowflake.ID) ([]*domain.Contractor, error) {
	return r.contractors.Find(ctx, &domain.Contractor{CompanyID: companyID}, option.WithSortBy(option.SortBy{Column: "name"}))
}

func (r *repo) GetProduct(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	return r.products.FindByID(ctx, id)
}

func (r *repo) ListProducts(ctx context.Context, workTypeID *snowflake.ID) ([]*domain.Product, error) {
	filter := &domain.Product{}
	if workTypeID != nil {
		filter.WorkTypeID = *workTypeID
	}
	return r.products.Find(ctx, filter, option.WithSortBy(option.SortBy{Column: "code"}))
}

func (r *repo) GetPaymentMethod(ctx context.Context, id snowflake.ID) (*domain.PaymentMethod, error) {
	return r.paymentMethods.FindByID(ctx, id)
}

func (r *repo) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	return r.paymentMethods.Find(ctx, nil, option.WithSortBy(option.SortBy{Column: "code"}))
}
