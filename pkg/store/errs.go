package store

import "errors"

// ErrUnknownSeries is returned when a pid has no series (never observed, or removed).
var ErrUnknownSeries = errors.New("store: unknown series")
