package models

// RowScanner is satisfied by *sql.Row and *sql.Rows. Every entity in this
// package pairs a canonical column list with a scan function so the SELECT
// list and the destination fields live side by side and cannot drift apart.
type RowScanner interface {
	Scan(dest ...any) error
}
