package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateCompany(ctx context.Context, req CreateCompanyRequest) (*Company, error)
	SetCompanyDefaults(ctx context.Context, req SetCompanyDefaultsRequest) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)

	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	ListAccounts(ctx context.Context, companyID snowflake.ID) ([]*Account, error)

	CreateJournal(ctx context.Context, req CreateJournalRequest) (*Journal, error)
	ListJournals(ctx context.Context, companyID snowflake.ID) ([]*Journal, error)

	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	ListProjects(ctx context.Context, companyID snowflake.ID) ([]*Project, error)

	CreateWorkType(ctx context.Context, req CreateWorkTypeRequest) (*WorkType, error)
	ListWorkTypes(ctx context.Context) ([]*WorkType, error)

	CreateContractor(ctx context.Context, req CreateContractorRequest) (*Contractor, error)
	ListContractors(ctx context.Context, companyID snowflake.ID) ([]*Contractor, error)

	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	ListProducts(ctx context.Context, workTypeID *snowflake.ID) ([]*Product, error)

	CreatePaymentMethod(ctx context.Context, req CreatePaymentMethodRequest) (*PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]*PaymentMethod, error)
}

type CreateCompanyRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type SetCompanyDefaultsRequest struct {
	CompanyID           snowflake.ID  `json:"company_id"`
	DefaultTaxAccountID *snowflake.ID `json:"default_tax_account_id"`
	DefaultJournalID    *snowflake.ID `json:"default_journal_id"`
}

type CreateAccountRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	Type      AccountType  `json:"type"`
}

type CreateJournalRequest struct {
	CompanyID        snowflake.ID  `json:"company_id"`
	Code             string        `json:"code"`
	Name             string        `json:"name"`
	Type             JournalType   `json:"type"`
	DefaultAccountID *snowflake.ID `json:"default_account_id"`
}

type CreateProjectRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
}

type CreateWorkTypeRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type CreateContractorRequest struct {
	CompanyID           snowflake.ID  `json:"company_id"`
	Name                string        `json:"name"`
	IsCompany           *bool         `json:"is_company"`
	PayableAccountID    *snowflake.ID `json:"payable_account_id"`
	ReceivableAccountID *snowflake.ID `json:"receivable_account_id"`
}

type CreateProductRequest struct {
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	Unit         string             `json:"unit"`
	WorkTypeID   snowflake.ID       `json:"work_type_id"`
	AccountType  ProductAccountType `json:"account_type"`
	InAccountID  *snowflake.ID      `json:"in_account_id"`
	OutAccountID *snowflake.ID      `json:"out_account_id"`
}

type CreatePaymentMethodRequest struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	JournalID   snowflake.ID `json:"journal_id"`
	PaymentType PaymentType  `json:"payment_type"`
}
