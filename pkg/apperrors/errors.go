package apperrors

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrTableNotFound             = errors.New("table not found")
	ErrLLMNotConfigured          = errors.New("text generation client is not configured")
	ErrWarehouseNotConfigured    = errors.New("warehouse client is not configured")
	ErrSessionStoreNotConfigured = errors.New("session store is not configured")
	ErrNoValidTables             = errors.New("no valid table ids")
)
