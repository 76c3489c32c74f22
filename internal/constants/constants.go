// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Server constants
const (
	// DefaultPort is the port the API listens on when nothing else is configured
	DefaultPort = 8080

	// DefaultHost is the bind address of the API
	DefaultHost = "0.0.0.0"

	// MaxRequestBodySize caps register and sort payloads (256MB). A few
	// thousand 512-dim embeddings as JSON fit comfortably.
	MaxRequestBodySize = 256 << 20

	// DefaultRateBurst is the burst size when rate limiting is enabled
	DefaultRateBurst = 20
)

// Local app constants
const (
	// DefaultBackendURL is where the local commands look for the API
	DefaultBackendURL = "http://127.0.0.1:8080"

	// DefaultConcurrency is the default number of parallel embedding workers
	DefaultConcurrency = 4

	// MaxImageSize is the maximum dimension (width or height) sent to the face embedder
	MaxImageSize = 1920

	// UnassignedDir receives inbox files without a match
	UnassignedDir = "_unassigned"

	// LockFileName is created in the sorted output root while a sort runs
	LockFileName = ".photo-triage.lock"
)

// ImageExtensions lists the file extensions treated as images (lowercase).
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp", ".tif", ".tiff"}
