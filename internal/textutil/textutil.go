package textutil

// Truncate shortens a string to maxLen, appending "..." if truncated.
// Used to keep prose excerpts in log lines readable.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
