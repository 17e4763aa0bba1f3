package domain

import "time"

// Title is a catalog entry; physical circulation happens at the Copy level.
type Title struct {
	ID        string
	Name      string
	Author    string
	ISBN      string
	CreatedAt time.Time
}
