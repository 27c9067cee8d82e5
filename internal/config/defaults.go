package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultRefreshEvery    = 15 * time.Minute
	DefaultCatalogRetry    = 30 * time.Second
	DefaultHistoryMaxDays  = 5 * 365
)
