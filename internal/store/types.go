package store

// Storage persists the small amount of state kudzu-context keeps between
// runs: cached hologram ids per role and user settings.
type Storage interface {
	// Source ids
	LoadSourceIDs() (map[string]string, error)
	SaveSourceIDs(ids map[string]string) error

	// Configuration Management
	SetConfig(key, value string) error
	GetConfig(key string) (string, error)
	ListConfig() (map[string]string, error)

	Close() error
}
