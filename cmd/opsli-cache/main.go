package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cache"
	"github.com/opsli/go-cache/cacheutil"
	"github.com/opsli/go-cache/config"
	"github.com/opsli/go-cache/env"
	"github.com/opsli/go-cache/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const pingTimeout = 5 * time.Second

func main() {
	root, shutdown := newRootCommand()
	err := root.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand returns the CLI and a func flushing the spans it produced. The
// func must run after Execute, whether or not the command failed.
func newRootCommand() (*cobra.Command, func()) {
	shutdown := func() {}
	root := &cobra.Command{
		Use:           "opsli-cache",
		Short:         "Inspect and edit the opsli two-tier cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnvFile(cmd); err != nil {
				return err
			}
			fn, err := env.NewTelemetry(cmd.Context(), cmd, "opsli-cache")
			if err != nil {
				return err
			}
			shutdown = fn
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.String("redis-url", "", "redis url, e.g. redis://localhost:6379/0 (env "+env.RedisURL+")")
	flags.String("prefix", "", "global key prefix (env "+env.CachePrefix+")")
	flags.String("config", "", "config file (env "+env.CacheConfig+")")
	flags.String("codec", "", "entry codec: json or msgpack")
	flags.String("env-file", "", "dotenv file applied before reading the environment")
	flags.String("log-level", "", "log level (env "+env.LogLevelEnv+")")
	flags.String("log-format", "", "console or json (env "+env.LogFormat+")")
	flags.String("otlp-url", "", "OTLP/HTTP collector receiving spans (env "+env.OTLPURL+")")
	flags.String("otlp-token", "", "bearer token for the collector (env "+env.OTLPToken+")")

	root.AddCommand(
		newGetCommand(),
		newPutCommand(),
		newDelCommand(),
		newHGetCommand(),
		newHGetAllCommand(),
		newHPutCommand(),
		newHDelCommand(),
		newNilCommand(),
		newKeysCommand(),
	)
	return root, func() { shutdown() }
}

// applyEnvFile exports the --env-file entries before anything reads the
// environment.
func applyEnvFile(cmd *cobra.Command) error {
	fn, _ := cmd.Flags().GetString("env-file")
	if fn == "" {
		return nil
	}
	lines, err := env.ParseEnvFile(fn)
	if err != nil {
		return err
	}
	return env.Apply(lines)
}

// loadConfig resolves the config file, the environment and the flags, in
// increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(env.FlagOrEnv(cmd, "config", env.CacheConfig, ""))
	if err != nil {
		return nil, err
	}
	cfg.Redis.URL = env.FlagOrEnv(cmd, "redis-url", env.RedisURL, cfg.Redis.URL)
	cfg.Prefix = env.FlagOrEnv(cmd, "prefix", env.CachePrefix, cfg.Prefix)
	if codec, _ := cmd.Flags().GetString("codec"); codec != "" {
		cfg.Codec = codec
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// openFacade connects to Redis and builds the facade. The returned func
// releases both tiers and the client.
func openFacade(cmd *cobra.Command) (*cacheutil.Facade, func(), error) {
	log := env.NewLogger(cmd)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.Redis.Options()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, errors.Wrapf(err, "connect to redis %s", opts.Addr)
	}

	backend, err := cfg.Backend()
	if err != nil {
		log.Warn("using default cache spaces: %s", err)
		backend = &config.Backend{}
	}
	if _, err := backend.SpaceConfigs(); err != nil {
		log.Warn("ignoring unusable cache spaces: %s", err)
	}
	codec, err := cfg.EntryCodec()
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	local := cache.NewLocal(cmd.Context(), backend.LocalOptions()...)
	remote := cache.NewRedis(client, cache.WithQueryTimeout(cfg.Redis.Timeout()))
	f, err := cacheutil.New(remote, local,
		cacheutil.WithPrefix(cfg.KeyPrefix()),
		cacheutil.WithBackend(backend),
		cacheutil.WithCodec(codec),
		cacheutil.WithLogger(log),
	)
	if err != nil {
		local.Close()
		client.Close()
		return nil, nil, err
	}
	logger.WithKV(log, "addr", opts.Addr).Debug("connected, prefix %s", cfg.KeyPrefix())
	return f, func() {
		f.Close()
		client.Close()
	}, nil
}

// withFacade wraps a command body that needs a live facade.
func withFacade(run func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		f, closer, err := openFacade(cmd)
		if err != nil {
			return err
		}
		defer closer()
		return run(cmd, f, args)
	}
}
