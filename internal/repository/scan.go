package repository

// rowsIter abstracts the pgx rows type so scan helpers can be exercised
// without a live database.
type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
