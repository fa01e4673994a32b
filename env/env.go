package env

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/logger"
	"github.com/opsli/go-cache/telemetry"
	"github.com/spf13/cobra"
)

// Environment variables read by the CLI.
const (
	RedisURL    = "OPSLI_REDIS_URL"
	CachePrefix = "OPSLI_CACHE_PREFIX"
	CacheConfig = "OPSLI_CACHE_CONFIG"
	LogLevelEnv = logger.EnvLogLevel
	LogFormat   = "OPSLI_LOG_FORMAT"
	OTLPURL     = "OPSLI_OTLP_URL"
	OTLPToken   = "OPSLI_OTLP_TOKEN"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses a dotenv file. A missing file yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	buf, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return []EnvLine{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "env: read %s", filename)
	}
	return ParseEnvBuffer(buf), nil
}

func dequote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ParseEnvBuffer parses KEY=value lines, skipping blanks and # comments.
// References of the form ${NAME} resolve against earlier lines, then against
// the process environment; unresolved references are kept verbatim.
func ParseEnvBuffer(buf []byte) []EnvLine {
	envs := make([]EnvLine, 0)
	seen := make(map[string]string)
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, _ := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		val = os.Expand(dequote(strings.TrimSpace(val)), func(name string) string {
			if v, ok := seen[name]; ok {
				return v
			}
			if v, ok := os.LookupEnv(name); ok {
				return v
			}
			return "${" + name + "}"
		})
		seen[key] = val
		envs = append(envs, EnvLine{Key: key, Val: val})
	}
	return envs
}

// Apply exports every line that is not already set in the process environment.
func Apply(envs []EnvLine) error {
	for _, el := range envs {
		if _, ok := os.LookupEnv(el.Key); ok {
			continue
		}
		if err := os.Setenv(el.Key, el.Val); err != nil {
			return errors.Wrapf(err, "env: set %s", el.Key)
		}
	}
	return nil
}

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok && val != "" {
		return val
	}
	return defaultValue
}

func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", LogLevelEnv, "info"), logger.LevelInfo)
}

// NewLogger returns a logger by first checking the cobra.Command log-level and log-format flags, then
// the OPSLI_LOG_LEVEL and OPSLI_LOG_FORMAT environment values. The default is an info console logger.
func NewLogger(cmd *cobra.Command) logger.Logger {
	log.SetFlags(0)
	level := LogLevel(cmd)
	if FlagOrEnv(cmd, "log-format", LogFormat, "console") == "json" {
		return logger.NewJSONLogger(cmd.ErrOrStderr(), level)
	}
	return logger.NewConsoleLogger(level)
}

// NewTelemetry installs span export when --otlp-url or OPSLI_OTLP_URL is set and
// returns the matching shutdown func. Without a URL spans are dropped and the
// shutdown func does nothing.
//
// --otlp-token (string): bearer token for the collector, also OPSLI_OTLP_TOKEN
func NewTelemetry(ctx context.Context, cmd *cobra.Command, serviceName string) (telemetry.ShutdownFunc, error) {
	otlpURL := FlagOrEnv(cmd, "otlp-url", OTLPURL, "")
	if otlpURL == "" {
		return func() {}, nil
	}
	shutdown, err := telemetry.New(ctx, otlpURL, FlagOrEnv(cmd, "otlp-token", OTLPToken, ""), serviceName)
	if err != nil {
		return nil, errors.Wrap(err, "error creating telemetry")
	}
	return shutdown, nil
}
