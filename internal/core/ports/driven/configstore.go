package driven

// ConfigStore holds flat settings addressed by dotted keys such as
// "embedding.model". Typed getters return the zero value for missing keys
// and for values of another kind.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat also accepts integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value and persists it before returning.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path locates the backing file, or names the backend when there is none.
	Path() string
}
