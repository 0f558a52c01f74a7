package seed

import (
	"testing"

	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultCompany(t *testing.T) {
	models := append([]any{}, masterdomain.Models()...)
	models = append(models, &deductiondomain.Config{})
	conn := testutil.NewDB(t, models...)

	require.NoError(t, EnsureDefaultCompany(conn, "main", ""))
	require.NoError(t, EnsureDefaultCompany(conn, "MAIN", "Renamed"))

	var companies []masterdomain.Company
	require.NoError(t, conn.Find(&companies).Error)
	require.Len(t, companies, 1)
	company := companies[0]
	assert.Equal(t, "MAIN", company.Code)
	assert.Equal(t, defaultCompanyName, company.Name)
	require.NotNil(t, company.DefaultJournalID)
	require.NotNil(t, company.DefaultTaxAccountID)

	var general masterdomain.Journal
	require.NoError(t, conn.First(&general, "id = ?", *company.DefaultJournalID).Error)
	assert.Equal(t, masterdomain.JournalTypeGeneral, general.Type)

	var accounts int64
	require.NoError(t, conn.Model(&masterdomain.Account{}).Where("company_id = ?", company.ID).Count(&accounts).Error)
	assert.Equal(t, int64(8), accounts)

	var cfg deductiondomain.Config
	require.NoError(t, conn.First(&cfg, "company_id = ?", company.ID).Error)
	assert.True(t, cfg.IsDefault)
	assert.Equal(t, "5", cfg.RetentionPercentage.String())
	assert.NotNil(t, cfg.AdvanceAccountID)
	assert.NotNil(t, cfg.DefaultSlot)
}
