package domain

import "errors"

var (
	ErrInvalidCompany    = errors.New("invalid_company")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
	ErrInvalidAmountType = errors.New("invalid_tax_amount_type")
	ErrInvalidAmount     = errors.New("invalid_tax_amount")
	ErrInvalidAccount    = errors.New("invalid_tax_account")
	ErrNoTaxAccount      = errors.New("no_tax_account")
)
