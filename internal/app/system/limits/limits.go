// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps any single JSON request body. A mass action carrying
	// the maximum number of ids stays well below it.
	MaxJSONBody = 1 << 20 // 1 MB
)
