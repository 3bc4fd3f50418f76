// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Built-in defaults.
const (
	DefaultAPIBase          = "https://api.powerbi.com/v1.0/myorg"
	DefaultEmbedBase        = "https://app.powerbi.com/reportEmbed"
	DefaultDatasetID        = "3477f170-bf61-42a4-b7a6-4414d7bf8881"
	DefaultCredentialHelper = "az account get-access-token --resource https://analysis.windows.net/powerbi/api --query accessToken -o tsv"
	DefaultPacingDelayMS    = 400
	DefaultServerPort       = 3000
	DefaultEntryDocument    = "report-creator.html"
)

// Pacing strategies between authoring calls.
const (
	PacingFixed  = "fixed"
	PacingBucket = "bucket"
)

// Config holds the resolved configuration.
type Config struct {
	// Control plane
	APIBase          string `json:"api_base"`
	EmbedBase        string `json:"embed_base"`
	CredentialHelper string `json:"credential_helper"`

	// Default targets
	DatasetID   string `json:"dataset_id"`
	WorkspaceID string `json:"workspace_id"`

	// Catalog file; empty means the built-in catalog.
	Catalog string `json:"catalog"`

	// Build pacing
	Pacing        string `json:"pacing"`
	PacingDelayMS int    `json:"pacing_delay_ms"`
	StateDir      string `json:"state_dir"`

	// Static server
	ServerPort    int    `json:"server_port"`
	ServerRoot    string `json:"server_root"`
	EntryDocument string `json:"entry_document"`

	// Output settings
	Format string `json:"format"`

	// Behavior preferences (overridable by flags)
	Stats   *bool `json:"stats,omitempty"`
	Verbose *int  `json:"verbose,omitempty"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceRepo    Source = "repo"
	SourceLocal   Source = "local"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Workspace string
	Dataset   string
	Catalog   string
	Format    string
	Pacing    string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		APIBase:          DefaultAPIBase,
		EmbedBase:        DefaultEmbedBase,
		CredentialHelper: DefaultCredentialHelper,
		DatasetID:        DefaultDatasetID,
		Pacing:           PacingFixed,
		PacingDelayMS:    DefaultPacingDelayMS,
		StateDir:         defaultStateDir(),
		ServerPort:       DefaultServerPort,
		ServerRoot:       ".",
		EntryDocument:    DefaultEntryDocument,
		Format:           "auto",
		Sources:          make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > local > repo > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	repoPath := repoConfigPath()
	if repoPath != "" {
		loadFromFile(cfg, repoPath, SourceRepo)
	}

	// Closer directories override parents.
	for _, path := range localConfigPaths(repoPath) {
		loadFromFile(cfg, path, SourceLocal)
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no command can work with.
func (cfg *Config) Validate() error {
	switch cfg.Pacing {
	case PacingFixed, PacingBucket:
	default:
		return fmt.Errorf("unknown pacing %q (want %q or %q)", cfg.Pacing, PacingFixed, PacingBucket)
	}
	if cfg.PacingDelayMS < 0 {
		return fmt.Errorf("pacing_delay_ms must not be negative, got %d", cfg.PacingDelayMS)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return fmt.Errorf("server_port out of range: %d", cfg.ServerPort)
	}
	return nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// Authority keys decide where bearer tokens go and which program mints
	// them. A config checked into a cloned repo must not be able to set them.
	untrusted := source == SourceLocal || source == SourceRepo
	authority := func(key string, dst *string) {
		v, ok := fileCfg[key].(string)
		if !ok || v == "" {
			return
		}
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s %q from %s config at %s (authority keys are not trusted from local/repo config)\n", key, v, source, path)
			return
		}
		*dst = v
		cfg.Sources[key] = string(source)
	}
	authority("api_base", &cfg.APIBase)
	authority("credential_helper", &cfg.CredentialHelper)

	str := func(key string, dst *string) {
		if v := getStringOrNumber(fileCfg, key); v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}
	str("embed_base", &cfg.EmbedBase)
	str("dataset_id", &cfg.DatasetID)
	str("workspace_id", &cfg.WorkspaceID)
	str("catalog", &cfg.Catalog)
	str("pacing", &cfg.Pacing)
	str("state_dir", &cfg.StateDir)
	str("server_root", &cfg.ServerRoot)
	str("entry_document", &cfg.EntryDocument)
	str("format", &cfg.Format)

	num := func(key string, dst *int) {
		if fv, ok := fileCfg[key].(float64); ok && fv == float64(int(fv)) {
			*dst = int(fv)
			cfg.Sources[key] = string(source)
		}
	}
	num("pacing_delay_ms", &cfg.PacingDelayMS)
	num("server_port", &cfg.ServerPort)

	if v, ok := fileCfg["stats"].(bool); ok {
		cfg.Stats = &v
		cfg.Sources["stats"] = string(source)
	}
	if fv, ok := fileCfg["verbose"].(float64); ok {
		iv := int(fv)
		if iv >= 0 && iv <= 2 && fv == float64(iv) {
			cfg.Verbose = &iv
			cfg.Sources["verbose"] = string(source)
		}
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	str := func(env, key string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	str("PBI_API_BASE", "api_base", &cfg.APIBase)
	str("PBI_EMBED_BASE", "embed_base", &cfg.EmbedBase)
	str("PBI_DATASET_ID", "dataset_id", &cfg.DatasetID)
	str("PBI_WORKSPACE_ID", "workspace_id", &cfg.WorkspaceID)
	str("PBI_CREDENTIAL_HELPER", "credential_helper", &cfg.CredentialHelper)
	str("PBI_PACING", "pacing", &cfg.Pacing)
	str("REPORTBUILDER_CATALOG", "catalog", &cfg.Catalog)

	num := func(env, key string, dst *int) {
		v := os.Getenv(env)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s=%q: not an integer\n", env, v)
			return
		}
		*dst = n
		cfg.Sources[key] = string(SourceEnv)
	}
	num("PBI_PACING_DELAY_MS", "pacing_delay_ms", &cfg.PacingDelayMS)
	num("PBI_SERVER_PORT", "server_port", &cfg.ServerPort)

	if v := os.Getenv("REPORTBUILDER_STATS"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Stats = &b
			cfg.Sources["stats"] = string(SourceEnv)
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Unrecognized values are ignored to preserve three-state pointer semantics.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// getStringOrNumber extracts a value that may be either a string or number in JSON.
func getStringOrNumber(m map[string]any, key string) string {
	switch val := m[key].(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	set := func(v, key string, dst *string) {
		if v != "" {
			*dst = v
			cfg.Sources[key] = string(SourceFlag)
		}
	}
	set(o.Workspace, "workspace_id", &cfg.WorkspaceID)
	set(o.Dataset, "dataset_id", &cfg.DatasetID)
	set(o.Catalog, "catalog", &cfg.Catalog)
	set(o.Format, "format", &cfg.Format)
	set(o.Pacing, "pacing", &cfg.Pacing)
}

// Path helpers

func systemConfigPath() string {
	return "/etc/reportbuilder/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

func defaultStateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "reportbuilder")
}

func repoConfigPath() string {
	// Walk up to the nearest .git, bounded by $HOME. Outside $HOME no repo
	// config is trusted.
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	dir = resolved
	home, _ := os.UserHomeDir()
	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		home = resolved
	}

	if home != "" && !isInsideDir(dir, home) {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			cfgPath := filepath.Join(dir, ".reportbuilder", "config.json")
			if _, err := os.Stat(cfgPath); err == nil {
				return cfgPath
			}
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			return ""
		}
		dir = parent
	}
}

// isInsideDir reports whether child is the same as or a subdirectory of parent.
func isInsideDir(child, parent string) bool {
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}

// localConfigPaths returns .reportbuilder/config.json paths within the trust
// boundary, furthest ancestor first, excluding the repo config.
//
// Trust boundary:
//   - Inside a git repo: only paths at or below the repo root
//   - Outside a git repo: only the current working directory
func localConfigPaths(repoConfigPath string) []string {
	dir, err := os.Getwd()
	if err != nil {
		return nil
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	dir = resolved

	boundary := dir
	if repoConfigPath != "" {
		boundary = filepath.Dir(filepath.Dir(repoConfigPath))
	}
	if resolved, err := filepath.EvalSymlinks(boundary); err == nil {
		boundary = resolved
	}

	var paths []string
	for {
		cfgPath := filepath.Join(dir, ".reportbuilder", "config.json")
		if _, err := os.Stat(cfgPath); err == nil && cfgPath != repoConfigPath {
			paths = append(paths, cfgPath)
		}

		parent := filepath.Dir(dir)
		if parent == dir || dir == boundary {
			break
		}
		dir = parent
	}

	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "reportbuilder")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
