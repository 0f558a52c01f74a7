package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound                = errors.New("not_found")
	ErrInvalidPeriod           = errors.New("invalid_work_period")
	ErrInvalidDate             = errors.New("invalid_statement_date")
	ErrInvalidContractorType   = errors.New("invalid_contractor_type")
	ErrInvalidProject          = errors.New("invalid_project")
	ErrInvalidWorkType         = errors.New("invalid_work_type")
	ErrInvalidContractor       = errors.New("invalid_contractor")
	ErrInvalidProduct          = errors.New("invalid_product")
	ErrInvalidTax              = errors.New("invalid_tax")
	ErrInvalidJournal          = errors.New("invalid_journal")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidPercentage       = errors.New("invalid_retention_percentage")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrQuantityExceeded        = errors.New("quantity_exceeded")
	ErrProductWorkTypeMismatch = errors.New("product_work_type_mismatch")
	ErrDuplicateProduct        = errors.New("duplicate_product")
	ErrLineNotFound            = errors.New("line_not_found")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrStatementLocked         = errors.New("statement_locked")
	ErrNotEditable             = errors.New("statement_not_editable")
	ErrMissingJournal          = errors.New("missing_journal")
	ErrMissingDeductionAccount = errors.New("missing_deduction_account")
	ErrMissingProductAccount   = errors.New("missing_product_account")
	ErrMissingPartnerAccount   = errors.New("missing_partner_account")
	ErrMissingTaxAccount       = errors.New("missing_tax_account")
	ErrMissingPaymentMethod    = errors.New("missing_payment_method")
	ErrPaymentTypeMismatch     = errors.New("payment_type_mismatch")
	ErrNegativeNetPayable      = errors.New("negative_net_payable")
	ErrMissingConfiguration    = errors.New("missing_deduction_configuration")
	ErrUnbalancedEntry         = errors.New("unbalanced_entry")
)

// ValidationError is a user-correctable failure on a statement or line.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Details: fmt.Sprintf(format, args...)}
}

// ConfigurationError needs an administrator to fix configuration records.
type ConfigurationError struct {
	Err     error
	Details string
}

func (e *ConfigurationError) Error() string {
	if e.Details == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// UnbalancedEntryError means the posting builder produced a lopsided entry.
// It signals a bug, never bad input.
type UnbalancedEntryError struct {
	Check  string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced_entry: %s check failed, debit %s credit %s difference %s",
		e.Check,
		e.Debit.StringFixed(2),
		e.Credit.StringFixed(2),
		e.Debit.Sub(e.Credit).Abs().StringFixed(2),
	)
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
