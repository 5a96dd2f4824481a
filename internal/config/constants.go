package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "Used Car Transaction Dashboard"
	AppVersion = "1.0.0"

	// Dataset
	DefaultDatasetPath    = "export_car_df.csv"
	DefaultRecentMonths   = 1
	DefaultBaselineMonths = 12
	DefaultTopBrands      = 10
	DefaultCurrency       = "HKD"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 30 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second
	WebSocketWriteWait    = 10 * time.Second

	// Logging
	DefaultLogFile = "logs/app.log"
)
