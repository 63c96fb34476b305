package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	root   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProjectRoot sets the directory relative paths in the configuration
// resolve against. Defaults to the current directory.
func WithProjectRoot(root string) Option {
	return func(a *application) {
		a.root = root
	}
}
