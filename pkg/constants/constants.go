// Package constants provides shared constants used throughout worldstat:
// timeouts, limits, file permissions and the sentinel tokens that appear in
// the published document.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout bounds a single upstream HTTP call
	DefaultHTTPTimeout = 30 * time.Second

	// BulkDownloadTimeout bounds streaming a full bulk table
	BulkDownloadTimeout = 5 * time.Minute

	// RunTimeout is the default upper bound for a whole run
	RunTimeout = 15 * time.Minute

	// ShutdownTimeout is the grace period for cleanup after a failed run
	ShutdownTimeout = 5 * time.Second
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// MaxConcurrentSources is the number of sources fetched in parallel
	MaxConcurrentSources = 4

	// MaxConcurrentRequests is the number of in-flight requests per paginated source
	MaxConcurrentRequests = 8

	// DefaultPageSize is the page size requested from paginated APIs
	DefaultPageSize = 100

	// MaxPages stops runaway pagination
	MaxPages = 50

	// DefaultLookbackYears is the crawl-back horizon in snapshot mode
	DefaultLookbackYears = 20

	// DefaultWindowYears is the number of years a window fetch asks for
	DefaultWindowYears = 20
)

// Document tokens
const (
	// NoDataYear marks a snapshot indicator with no valid value in the horizon
	NoDataYear = "N/A"

	// EstimatedYear marks a snapshot value backfilled from a configured constant
	EstimatedYear = "estimated"

	// DefaultDocumentPath is where the aggregate document is published
	DefaultDocumentPath = "global_data.json"
)
