package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"

	"github.com/bmd-analytics/reportbuilder/internal/appctx"
	"github.com/bmd-analytics/reportbuilder/internal/config"
	"github.com/bmd-analytics/reportbuilder/internal/hostutil"
	"github.com/bmd-analytics/reportbuilder/internal/output"
)

// configKeys are the keys config set and unset accept.
var configKeys = map[string]keyKind{
	"api_base":          keyAuthority,
	"credential_helper": keyAuthority,
	"embed_base":        keyString,
	"dataset_id":        keyString,
	"workspace_id":      keyString,
	"catalog":           keyString,
	"pacing":            keyString,
	"pacing_delay_ms":   keyInt,
	"state_dir":         keyString,
	"server_port":       keyInt,
	"server_root":       keyString,
	"entry_document":    keyString,
	"format":            keyString,
	"stats":             keyBool,
	"verbose":           keyInt,
}

type keyKind int

const (
	keyString keyKind = iota
	keyAuthority
	keyInt
	keyBool
)

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show effective configuration",
		Long: `Manage reportbuilder configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > local > repo > global > system > defaults

Config locations:
  - System: /etc/reportbuilder/config.json
  - Global: ~/.config/reportbuilder/config.json
  - Repo:   <git-root>/.reportbuilder/config.json
  - Local:  .reportbuilder/config.json

api_base and credential_helper are only read from global and system files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Display the current effective configuration with source information.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	app := appctx.FromContext(cmd.Context())
	cfg := app.Config

	values := map[string]string{
		"api_base":          cfg.APIBase,
		"embed_base":        cfg.EmbedBase,
		"credential_helper": cfg.CredentialHelper,
		"dataset_id":        cfg.DatasetID,
		"workspace_id":      cfg.WorkspaceID,
		"catalog":           cfg.Catalog,
		"pacing":            cfg.Pacing,
		"pacing_delay_ms":   strconv.Itoa(cfg.PacingDelayMS),
		"state_dir":         cfg.StateDir,
		"server_port":       strconv.Itoa(cfg.ServerPort),
		"server_root":       cfg.ServerRoot,
		"entry_document":    cfg.EntryDocument,
		"format":            cfg.Format,
	}
	if cfg.Stats != nil {
		values["stats"] = strconv.FormatBool(*cfg.Stats)
	}
	if cfg.Verbose != nil {
		values["verbose"] = strconv.Itoa(*cfg.Verbose)
	}

	configData := make(map[string]any, len(values))
	for key, value := range values {
		if value == "" {
			continue
		}
		source := cfg.Sources[key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		configData[key] = map[string]string{
			"value":  value,
			"source": source,
		}
	}

	return app.OK(configData,
		output.WithSummary("Effective configuration"),
		output.WithBreadcrumbs(
			output.Breadcrumb{
				Action:      "set",
				Cmd:         "reportbuilder config set <key> <value>",
				Description: "Set config value",
			},
		),
	)
}

func configPath(global bool) (path, scope string) {
	if global {
		return filepath.Join(config.GlobalConfigDir(), "config.json"), "global"
	}
	return filepath.Join(".reportbuilder", "config.json"), "local"
}

func validKeyNames() string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// readConfigFile returns the file's keys, or an empty map when it does not
// exist or cannot be parsed.
func readConfigFile(path string) map[string]any {
	data := make(map[string]any)
	if raw, err := os.ReadFile(path); err == nil { //nolint:gosec // G304: Path is from trusted config location
		_ = json.Unmarshal(jsonc.ToJSON(raw), &data)
	}
	return data
}

func writeConfigFile(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// parseConfigValue converts value to the type stored under key.
func parseConfigValue(key, value string) (any, error) {
	switch configKeys[key] {
	case keyBool:
		b, ok := parseBoolFlag(value)
		if !ok {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be true/false (or 1/0)", key))
		}
		return b, nil
	case keyInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be a non-negative integer", key))
		}
		if key == "verbose" && n > 2 {
			return nil, output.ErrUsage("verbose must be 0, 1, or 2")
		}
		return n, nil
	}
	switch key {
	case "pacing":
		if value != config.PacingFixed && value != config.PacingBucket {
			return nil, output.ErrUsage(fmt.Sprintf("pacing must be %q or %q", config.PacingFixed, config.PacingBucket))
		}
	case "api_base", "embed_base":
		value = hostutil.NormalizeBaseURL(value)
		if err := hostutil.RequireSecureURL(value); err != nil {
			return nil, output.ErrUsage(err.Error())
		}
	}
	return value, nil
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the local or global config file.

Valid keys: ` + validKeyNames(),
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 2) {
				return nil
			}
			app := appctx.FromContext(cmd.Context())
			key, value := args[0], args[1]

			kind, ok := configKeys[key]
			if !ok {
				return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s", key, validKeyNames()))
			}
			if kind == keyAuthority && !global {
				return output.ErrUsageHint(key+" is only read from the global config", "Use: reportbuilder config set --global "+key+" <value>")
			}
			parsed, err := parseConfigValue(key, value)
			if err != nil {
				return err
			}

			path, scope := configPath(global)
			data := readConfigFile(path)
			data[key] = parsed
			if err := writeConfigFile(path, data); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  parsed,
				"scope":  scope,
				"path":   path,
				"status": "set",
			},
				output.WithSummary(fmt.Sprintf("Set %s = %v (%s)", key, parsed, scope)),
				output.WithBreadcrumbs(
					output.Breadcrumb{
						Action:      "show",
						Cmd:         "reportbuilder config show",
						Description: "View config",
					},
				),
			)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Set in global config (~/.config/reportbuilder/)")

	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a configuration value",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !needArgs(cmd, args, 1) {
				return nil
			}
			app := appctx.FromContext(cmd.Context())
			key := args[0]

			if _, ok := configKeys[key]; !ok {
				return output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s", key, validKeyNames()))
			}

			path, scope := configPath(global)
			data := readConfigFile(path)
			status := "not set"
			if _, ok := data[key]; ok {
				delete(data, key)
				if err := writeConfigFile(path, data); err != nil {
					return err
				}
				status = "unset"
			}

			return app.OK(map[string]any{
				"key":    key,
				"scope":  scope,
				"path":   path,
				"status": status,
			}, output.WithSummary(fmt.Sprintf("%s %s (%s)", key, status, scope)))
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Remove from global config")

	return cmd
}

// parseBoolFlag parses true/false and 1/0.
func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// atomicWriteFile writes data to a file atomically using temp+rename.
// Files are always created with 0600 permissions (owner read/write only).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0o600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	// Windows: rename fails when the destination exists.
	err = os.Rename(tmpPath, path)
	if err != nil && runtime.GOOS == "windows" {
		_ = os.Remove(path)
		return os.Rename(tmpPath, path)
	}
	return err
}
