package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads and writes master data. Lookups return nil, nil when the
// record does not exist.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, record any) error

	GetCompany(ctx context.Context, id snowflake.ID) (*Company, error)
	FindCompanyByCode(ctx context.Context, code string) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
	UpdateCompanyDefaults(ctx context.Context, id snowflake.ID, taxAccountID, journalID *snowflake.ID) error

	GetAccount(ctx context.Context, id snowflake.ID) (*Account, error)
	// FindAccountByCodeFragment matches the first account whose code contains
	// fragment, case-insensitively.
	FindAccountByCodeFragment(ctx context.Context, companyID snowflake.ID, fragment string) (*Account, error)
	ListAccounts(ctx context.Context, companyID snowflake.ID) ([]*Account, error)

	GetJournal(ctx context.Context, id snowflake.ID) (*Journal, error)
	FindFirstJournal(ctx context.Context, companyID snowflake.ID, journalType JournalType) (*Journal, error)
	ListJournals(ctx context.Context, companyID snowflake.ID) ([]*Journal, error)

	GetProject(ctx context.Context, id snowflake.ID) (*Project, error)
	ListProjects(ctx context.Context, companyID snowflake.ID) ([]*Project, error)

	GetWorkType(ctx context.Context, id snowflake.ID) (*WorkType, error)
	ListWorkTypes(ctx context.Context) ([]*WorkType, error)

	GetContractor(ctx context.Context, id snowflake.ID) (*Contractor, error)
	ListContractors(ctx context.Context, companyID snowflake.ID) ([]*Contractor, error)

	GetProduct(ctx context.Context, id snowflake.ID) (*Product, error)
	ListProducts(ctx context.Context, workTypeID *snowflake.ID) ([]*Product, error)

	GetPaymentMethod(ctx context.Context, id snowflake.ID) (*PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]*PaymentMethod, error)
}
