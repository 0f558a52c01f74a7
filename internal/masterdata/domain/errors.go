package domain

import "errors"

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidCompany     = errors.New("invalid_company")
	ErrDuplicateCode      = errors.New("duplicate_code")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrInvalidJournalType = errors.New("invalid_journal_type")
	ErrInvalidPaymentType = errors.New("invalid_payment_type")
	ErrInvalidWorkType    = errors.New("invalid_work_type")
	ErrInvalidUnit        = errors.New("invalid_unit")
	ErrInvalidJournal     = errors.New("invalid_journal")
	ErrInvalidAccount     = errors.New("invalid_account")
)
