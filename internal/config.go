package internal

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/frytempura/tempura/internal/build"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the build tool configuration, loaded from
// tempura.config.json next to the script sources.
type Config struct {
	// ScriptFilesFolderLocation is the folder that receives the aggregate
	// artifact, typically the host application's user-scripts folder.
	// Empty means no aggregate is produced.
	ScriptFilesFolderLocation string `json:"scriptFilesFolderLocation" yaml:"scriptFilesFolderLocation"`
	// DeployMap copies extra folders into the vault after each build:
	// project-relative source to destination.
	DeployMap map[string]string `json:"deployMap" yaml:"deployMap"`

	Source SourceConfig      `json:"source" yaml:"source"`
	Build  BuildConfig       `json:"build" yaml:"build"`
	Watch  WatchConfig       `json:"watch" yaml:"watch"`
	Server ServerConfig      `json:"server" yaml:"server"`
	App    ApplicationConfig `json:"app" yaml:"app"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Build.Validate(); err != nil {
		return err
	}
	if err := c.Watch.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}

	if c.ScriptFilesFolderLocation == "" && len(c.DeployMap) == 0 {
		return fmt.Errorf("config: nothing to do: set scriptFilesFolderLocation or deployMap")
	}
	return c.validateDeployMap()
}

// validateDeployMap checks every pair and guards against destinations that
// would feed events back into the watched sources.
func (c *Config) validateDeployMap() error {
	watched := []string{c.Source.Dir}
	for src := range c.DeployMap {
		if src == "" {
			return fmt.Errorf("config: deployMap has an empty source")
		}
		if !relativePath(src) {
			return fmt.Errorf("config: deployMap source %q must be a relative path inside the project", src)
		}
		watched = append(watched, src)
	}

	check := func(dst string) error {
		if dst == "" {
			return fmt.Errorf("config: deployMap has an empty destination")
		}
		if !relativePath(dst) {
			// Absolute destinations point outside the project; nothing to guard.
			return nil
		}
		for _, w := range watched {
			if underDir(dst, w) {
				return fmt.Errorf("config: destination %q is inside watched folder %q; builds would retrigger forever", dst, w)
			}
		}
		return nil
	}

	if c.ScriptFilesFolderLocation != "" {
		if err := check(c.ScriptFilesFolderLocation); err != nil {
			return err
		}
	}
	for _, dst := range c.DeployMap {
		if err := check(dst); err != nil {
			return err
		}
	}
	return nil
}

// relativePath reports whether p stays inside the project when joined to
// its root.
func relativePath(p string) bool {
	clean := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, "..") {
		return false
	}
	return clean != "."
}

// underDir reports whether p equals dir or sits beneath it.
func underDir(p, dir string) bool {
	p, dir = path.Clean(p), path.Clean(dir)
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// SourceConfig locates the script sources.
type SourceConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	// Normalise empty dir to the conventional scripts folder.
	if c.Dir == "" {
		c.Dir = "scripts"
	}
	if !relativePath(c.Dir) {
		return fmt.Errorf("config: source dir %q must be a relative path inside the project", c.Dir)
	}
	return nil
}

// BuildConfig holds compiler settings.
type BuildConfig struct {
	// ArtifactName is the file name of the aggregate artifact.
	ArtifactName string `json:"artifactName" yaml:"artifactName"`
	// Target names the emitted language level.
	Target string `json:"target" yaml:"target"`
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	if c.ArtifactName == "" {
		c.ArtifactName = "tempura.js"
	}
	if c.Target == "" {
		c.Target = "es2018"
	}
	targets := build.SupportedTargets()
	in := make([]interface{}, len(targets))
	for i, t := range targets {
		in[i] = t
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ArtifactName, validation.Required,
			validation.By(func(interface{}) error {
				if !strings.HasSuffix(c.ArtifactName, ".js") {
					return fmt.Errorf("must end in .js")
				}
				if strings.ContainsAny(c.ArtifactName, "/\\") {
					return fmt.Errorf("must be a bare file name")
				}
				return nil
			})),
		validation.Field(&c.Target, validation.Required, validation.In(in...)),
	)
}

// WatchConfig tunes the rebuild loop.
type WatchConfig struct {
	// DebounceMs is the quiet window after a change before a rebuild
	// starts. Zero or negative falls back to the default.
	DebounceMs int `json:"debounceMs" yaml:"debounceMs"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMs, validation.Max(60000)),
	)
}

// Debounce returns the effective debounce window.
func (c *WatchConfig) Debounce() time.Duration {
	if c.DebounceMs <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ServerConfig holds the optional local status API.
type ServerConfig struct {
	// Port 0 disables the server entirely.
	Port int        `json:"port" yaml:"port"`
	Auth AuthConfig `json:"auth" yaml:"auth"`
}

// Enabled reports whether the status server should start.
func (c *ServerConfig) Enabled() bool {
	return c.Port > 0
}

// Address returns the listen address, bound to loopback only.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// AuthConfig holds authentication configuration for the status API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `json:"mode" yaml:"mode"`
	Token string `json:"token" yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" so an omitted auth block means no auth.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `json:"logLevel" yaml:"logLevel"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Dir: "scripts",
		},
		Build: BuildConfig{
			ArtifactName: "tempura.js",
			Target:       "es2018",
		},
		Watch: WatchConfig{
			DebounceMs: 250,
		},
		Server: ServerConfig{
			Port: 0,
			Auth: AuthConfig{
				Mode: AuthModeDisabled,
			},
		},
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
	}
}
