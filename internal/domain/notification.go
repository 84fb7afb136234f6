package domain

import (
	"context"
	"time"
)

// NotificationService defines the interface for notification services
type NotificationService interface {
	// SendSeedReport reports a finished seeding run
	SendSeedReport(ctx context.Context, report SeedReport) error

	// SendError sends an error notification with error details
	SendError(ctx context.Context, err error) error
}

// SeedSource names where seeded entries came from
type SeedSource string

const (
	SeedSourceNone     SeedSource = "none"
	SeedSourceIndex    SeedSource = "anime-list"
	SeedSourceSearches SeedSource = "searches"
)

// SeedReport holds the outcome of one seeding run
type SeedReport struct {
	Skipped  bool
	Source   SeedSource
	Added    int
	Total    int
	Duration time.Duration
}
