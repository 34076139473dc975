package usecase

// Pagination bounds applied by list operations.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)
