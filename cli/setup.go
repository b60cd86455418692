package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compozy/specmatch/pkg/config"
	"github.com/compozy/specmatch/pkg/logger"
)

// flagKeys maps command line flags onto configuration paths.
var flagKeys = []struct {
	flag string
	key  string
	kind string
}{
	{"host", "server.host", "string"},
	{"port", "server.port", "int"},
	{"cors", "server.cors_enabled", "bool"},
	{"log-level", "runtime.log_level", "string"},
	{"format", "cli.format", "string"},
}

// extractCLIFlags collects the flags the user explicitly set.
func extractCLIFlags(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	for _, def := range flagKeys {
		if cmd.Flags().Lookup(def.flag) == nil || !cmd.Flags().Changed(def.flag) {
			continue
		}
		var value any
		var err error
		switch def.kind {
		case "int":
			value, err = cmd.Flags().GetInt(def.flag)
		case "bool":
			value, err = cmd.Flags().GetBool(def.flag)
		default:
			value, err = cmd.Flags().GetString(def.flag)
		}
		if err == nil {
			flags[def.key] = value
		}
	}
	return flags
}

// loadEnvFile loads environment variables from the --env-file path. A
// missing file is not an error.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// setupContext loads the environment and configuration, then attaches the
// config manager and logger to the command context.
func setupContext(cmd *cobra.Command, _ []string) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, config.NewYAMLProvider(configFile), config.NewCLIProvider(extractCLIFlags(cmd)))
	if err != nil {
		return err
	}
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(level) == "" {
		level = cfg.Runtime.LogLevel
	}
	log := logger.SetupLogger(level, logJSON, logSource)
	log.Debug(
		"configuration loaded",
		"config_file", configFile,
		"environment", cfg.Runtime.Environment,
		"env_overrides", config.EnvOverrides(),
	)
	ctx = config.ContextWithManager(ctx, manager)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}

func teardownContext(cmd *cobra.Command, _ []string) error {
	if m, ok := cmd.Context().Value(config.ManagerCtxKey).(*config.Manager); ok && m != nil {
		return m.Close(cmd.Context())
	}
	return nil
}
