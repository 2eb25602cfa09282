package main

// Exit codes shared by all rfm commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no refmark root, invalid config)
	ExitDataError   = 3 // Data error (unreadable document, nothing parseable)
	ExitLookupError = 4 // Metadata lookup failed for every entry
)
