package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateBalanced(t *testing.T) {
	d := decimal.RequireFromString

	balanced := []LineInput{
		{AccountID: 1, Debit: d("100.00")},
		{AccountID: 2, Credit: d("60.00")},
		{AccountID: 3, Credit: d("40.00")},
	}
	assert.NoError(t, ValidateBalanced(balanced))

	assert.ErrorIs(t, ValidateBalanced(balanced[:1]), ErrInvalidEntryLines)

	unbalanced := []LineInput{
		{AccountID: 1, Debit: d("100.00")},
		{AccountID: 2, Credit: d("99.98")},
	}
	assert.ErrorIs(t, ValidateBalanced(unbalanced), ErrUnbalancedEntry)

	twoSided := []LineInput{
		{AccountID: 1, Debit: d("10"), Credit: d("10")},
		{AccountID: 2, Credit: d("0")},
	}
	assert.ErrorIs(t, ValidateBalanced(twoSided), ErrInvalidLineAmount)

	noAccount := []LineInput{
		{Debit: d("10")},
		{AccountID: 2, Credit: d("10")},
	}
	assert.ErrorIs(t, ValidateBalanced(noAccount), ErrInvalidAccount)
}
