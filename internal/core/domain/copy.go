package domain

import "fmt"

type CopyStatus string

const (
	CopyStatusAvailable  CopyStatus = "available"
	CopyStatusCheckedOut CopyStatus = "checked_out"
)

type Copy struct {
	ID      int64
	TitleID int64
	Barcode string
	Status  CopyStatus
	Version int // optimistic locking
}

// CopyBarcode returns the default barcode of the n-th copy (1-based) of a title.
func CopyBarcode(titleID int64, n int) string {
	return fmt.Sprintf("%d-%d", titleID, n)
}

type InventoryCounts struct {
	Titles     int
	Copies     int
	Available  int
	CheckedOut int
}
