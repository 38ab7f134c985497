package entity

import "time"

// StockLocation is a warehouse or retail point stock can be fulfilled from.
// Priority orders locations during allocation (lower ships first); the
// default location additionally wins ties and absorbs backorders.
type StockLocation struct {
	ID          string
	Name        string
	Code        string
	Default     bool
	Priority    int
	Active      bool
	Fulfillable bool
	CreatedAt   time.Time
}
