package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrNoEdge         = errors.New("no arbitrage edge")
	ErrScanInProgress = errors.New("scan already in progress")
)
