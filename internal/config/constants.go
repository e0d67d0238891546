package config

const (
	// DefaultDatabasePath is the default path for the local store
	DefaultDatabasePath = "./readinglist.db"

	DefaultRemoteBaseURL = "https://api.readinglist.local"
)
