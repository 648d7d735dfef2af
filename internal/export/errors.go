package export

import "errors"

var (
	// ErrInvalidDateRange means date_range_days is outside [1, 365].
	ErrInvalidDateRange = errors.New("date range must be between 1 and 365 days")

	// ErrNoDataTypes means the job requested no data types.
	ErrNoDataTypes = errors.New("at least one data type is required")

	// ErrUnknownDataType means a requested data type is not exportable.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrNotRunnable means the job is not in the pending state.
	ErrNotRunnable = errors.New("export can only run from pending state")

	// ErrNotRetryable means retry was called on a job that has not failed.
	ErrNotRetryable = errors.New("only failed exports can be retried")

	// ErrNotReady means the job has no downloadable file yet.
	ErrNotReady = errors.New("export is not ready for download")

	// ErrFileMissing means the job is completed but its file is gone from
	// storage, typically after retention drift.
	ErrFileMissing = errors.New("export file is missing from storage")
)
