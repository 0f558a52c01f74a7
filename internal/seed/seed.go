package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultCompanyCode = "MAIN"
	defaultCompanyName = "Main Company"
)

// EnsureDefaultCompany seeds a usable company on first start: a chart of
// accounts, a general and a bank journal, and a company-wide deductions
// configuration. Existing records are left alone.
func EnsureDefaultCompany(db *gorm.DB, code, name string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = defaultCompanyCode
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultCompanyName
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, created, err := ensureCompanyTx(ctx, tx, node, code, name)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		accounts, err := ensureAccountsTx(ctx, tx, node, company.ID)
		if err != nil {
			return err
		}
		general, err := ensureJournalsTx(ctx, tx, node, company.ID, accounts["1010"])
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Model(&masterdomain.Company{}).
			Where("id = ?", company.ID).
			Updates(map[string]any{"default_journal_id": general, "default_tax_account_id": accounts["1500"]}).Error; err != nil {
			return err
		}
		return ensureDeductionConfigTx(ctx, tx, node, company.ID, accounts)
	})
}

func ensureCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, code, name string) (masterdomain.Company, bool, error) {
	var company masterdomain.Company
	err := tx.WithContext(ctx).Where("code = ?", code).First(&company).Error
	if err == nil {
		return company, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return company, false, err
	}
	now := time.Now().UTC()
	company = masterdomain.Company{
		ID:        node.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return company, false, err
	}
	return company, true, nil
}

// ensureAccountsTx returns account ids keyed by code.
func ensureAccountsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) (map[string]snowflake.ID, error) {
	accounts := []struct {
		Code string
		Type masterdomain.AccountType
		Name string
	}{
		{"1010", masterdomain.AccountTypeAsset, "Bank"},
		{"1210", masterdomain.AccountTypeAsset, "Contractor Receivable"},
		{"1400", masterdomain.AccountTypeAsset, "Contractor Advances"},
		{"1500", masterdomain.AccountTypeAsset, "Input Tax"},
		{"2010", masterdomain.AccountTypeLiability, "Contractor Payable"},
		{"2200", masterdomain.AccountTypeLiability, "Retention Payable"},
		{"2300", masterdomain.AccountTypeLiability, "Other Deductions"},
		{"5100", masterdomain.AccountTypeExpense, "Construction Work"},
	}

	now := time.Now().UTC()
	ids := make(map[string]snowflake.ID, len(accounts))
	for _, a := range accounts {
		row := masterdomain.Account{
			ID:        node.Generate(),
			CompanyID: companyID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			CreatedAt: now,
		}
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error; err != nil {
			return nil, err
		}
		var stored masterdomain.Account
		if err := tx.WithContext(ctx).
			Where("company_id = ? AND code = ?", companyID, a.Code).
			First(&stored).Error; err != nil {
			return nil, err
		}
		ids[a.Code] = stored.ID
	}
	return ids, nil
}

// ensureJournalsTx creates the general and bank journals and returns the
// general journal id.
func ensureJournalsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID, bankAccountID snowflake.ID) (snowflake.ID, error) {
	now := time.Now().UTC()
	general := masterdomain.Journal{
		ID:        node.Generate(),
		CompanyID: companyID,
		Code:      "GEN",
		Name:      "General",
		Type:      masterdomain.JournalTypeGeneral,
		Active:    true,
		CreatedAt: now,
	}
	bank := masterdomain.Journal{
		ID:               node.Generate(),
		CompanyID:        companyID,
		Code:             "BNK",
		Name:             "Bank",
		Type:             masterdomain.JournalTypeBank,
		DefaultAccountID: &bankAccountID,
		Active:           true,
		CreatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&general).Error; err != nil {
		return 0, err
	}
	if err := tx.WithContext(ctx).Create(&bank).Error; err != nil {
		return 0, err
	}
	return general.ID, nil
}

func ensureDeductionConfigTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID, accounts map[string]snowflake.ID) error {
	advance, retention, other := accounts["1400"], accounts["2200"], accounts["2300"]
	now := time.Now().UTC()
	cfg := deductiondomain.Config{
		ID:                  node.Generate(),
		CompanyID:           companyID,
		Name:                "Company default",
		IsDefault:           true,
		Active:              true,
		RetentionPercentage: decimal.NewFromInt(5),
		AdvanceAccountID:    &advance,
		RetentionAccountID:  &retention,
		OtherAccountID:      &other,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	cfg.ApplySlots()
	return tx.WithContext(ctx).Create(&cfg).Error
}
