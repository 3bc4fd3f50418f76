// Package output provides JSON/Markdown output formatting and error handling.
package output

// Exit codes. Gaps are reserved so scripts written against earlier
// releases keep their meaning.
const (
	ExitOK      = 0 // Success (also used for informational usage output)
	ExitUsage   = 1 // Invalid flags
	ExitAuth    = 3 // Credential helper failed or returned nothing
	ExitNetwork = 6 // Connection/DNS/timeout error
	ExitAPI     = 7 // Power BI returned a non-2xx response
	ExitConfig  = 8 // Misconfiguration (bad catalog, no active session)
)

// Error codes for JSON envelope.
const (
	CodeUsage   = "usage"
	CodeAuth    = "auth_required"
	CodeNetwork = "network"
	CodeAPI     = "api_error"
	CodeConfig  = "config"
	CodeBuild   = "build_failed"
)

// ExitCodeFor returns the exit code for a given error code.
func ExitCodeFor(code string) int {
	switch code {
	case CodeUsage:
		return ExitUsage
	case CodeAuth:
		return ExitAuth
	case CodeNetwork:
		return ExitNetwork
	case CodeAPI:
		return ExitAPI
	case CodeConfig:
		return ExitConfig
	default:
		return ExitAPI
	}
}
