package internal

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ScriptFilesFolderLocation = "/vault/Scripts"
	return cfg
}

func TestConfig_DefaultsAreValid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with a folder location should pass: %v", err)
	}
	if cfg.Source.Dir != "scripts" {
		t.Errorf("source dir = %q", cfg.Source.Dir)
	}
	if cfg.Build.ArtifactName != "tempura.js" || cfg.Build.Target != "es2018" {
		t.Errorf("build defaults = %+v", cfg.Build)
	}
}

func TestConfig_RequiresSomeTarget(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("config without folder location or deploy map should fail")
	}
	if !strings.Contains(err.Error(), "nothing to do") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig_DeployMapAloneIsEnough(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.DeployMap = map[string]string{"assets": "/vault/assets"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("deploy map alone should pass: %v", err)
	}
}

func TestConfig_RejectsAbsoluteDeploySource(t *testing.T) {
	cfg := validConfig()
	cfg.DeployMap = map[string]string{"/etc": "/vault/etc"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("absolute deploy source should fail")
	}
}

func TestConfig_RejectsEscapingSourceDir(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Dir = "../outside"
	if err := cfg.Validate(); err == nil {
		t.Fatal("source dir escaping the project should fail")
	}
}

func TestConfig_RejectsDestinationInsideWatchedFolder(t *testing.T) {
	cfg := validConfig()
	cfg.DeployMap = map[string]string{"assets": "scripts/out"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("destination inside the source dir should fail")
	}
	if !strings.Contains(err.Error(), "retrigger") {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = validConfig()
	cfg.DeployMap = map[string]string{"assets": "assets/sub"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("destination inside its own deploy source should fail")
	}
}

func TestConfig_RelativeFolderLocationChecked(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ScriptFilesFolderLocation = "scripts"
	if err := cfg.Validate(); err == nil {
		t.Fatal("artifact landing inside the source dir should fail")
	}

	cfg = NewDefaultConfig()
	cfg.ScriptFilesFolderLocation = "vault/scripts"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sibling relative destination should pass: %v", err)
	}
}

func TestBuildConfig_UnknownTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Build.Target = "es5"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unsupported target should fail validation")
	}
}

func TestBuildConfig_ArtifactNameShape(t *testing.T) {
	cfg := validConfig()
	cfg.Build.ArtifactName = "tempura.ts"
	if err := cfg.Validate(); err == nil {
		t.Fatal("artifact name without .js should fail")
	}

	cfg = validConfig()
	cfg.Build.ArtifactName = "sub/tempura.js"
	if err := cfg.Validate(); err == nil {
		t.Fatal("artifact name with a path separator should fail")
	}
}

func TestWatchConfig_Debounce(t *testing.T) {
	w := WatchConfig{DebounceMs: 100}
	if w.Debounce() != 100*time.Millisecond {
		t.Errorf("debounce = %v", w.Debounce())
	}
	w = WatchConfig{}
	if w.Debounce() != 250*time.Millisecond {
		t.Errorf("zero debounce should fall back to default, got %v", w.Debounce())
	}
}

func TestServerConfig_PortGatesServer(t *testing.T) {
	s := ServerConfig{Port: 0}
	if s.Enabled() {
		t.Error("port 0 should disable the server")
	}
	s.Port = 7749
	if !s.Enabled() {
		t.Error("positive port should enable the server")
	}
	if s.Address() != "127.0.0.1:7749" {
		t.Errorf("address = %q", s.Address())
	}
	s.Port = 70000
	if err := s.Validate(); err == nil {
		t.Error("out-of-range port should fail")
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Auth.Mode = "token"
	cfg.Server.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
