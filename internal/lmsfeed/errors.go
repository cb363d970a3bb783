package lmsfeed

import "errors"

var (
	ErrUnsupportedFormat   = errors.New("unsupported_feed_format")
	ErrEmptyFeed           = errors.New("empty_feed")
	ErrMissingLoanIDColumn = errors.New("missing_loan_id_column")
	ErrSheetNotFound       = errors.New("sheet_not_found")
)
