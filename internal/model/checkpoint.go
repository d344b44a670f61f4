package model

import "time"

// Checkpoint marks the end of the last successfully processed window.
type Checkpoint struct {
	LastCheckTime time.Time
	UpdatedAt     time.Time
}
