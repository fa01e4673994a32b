package main

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/opsli/go-cache/cacheutil"
	"github.com/opsli/go-cache/sys"
	"github.com/spf13/cobra"
)

var errNotFound = errors.New("not found")

// parseValue reads a command line value as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func printValue(cmd *cobra.Command, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "format value")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(buf))
	return nil
}

func printResult[T any](cmd *cobra.Command, r sys.Result[T]) error {
	if r.Err != nil {
		return r.Err
	}
	if !r.Found {
		return errNotFound
	}
	return printValue(cmd, r.Ok)
}

func callOptions(cmd *cobra.Command) []cacheutil.CallOption {
	var opts []cacheutil.CallOption
	if local, _ := cmd.Flags().GetBool("local"); local {
		opts = append(opts, cacheutil.WithLocal())
	}
	if permanent, _ := cmd.Flags().GetBool("permanent"); permanent {
		opts = append(opts, cacheutil.Permanent())
	}
	return opts
}

func newGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a timed value, or an eden value with --permanent",
		Args:  cobra.ExactArgs(1),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			if permanent, _ := cmd.Flags().GetBool("permanent"); permanent {
				return printResult(cmd, f.GetEden(cmd.Context(), args[0], callOptions(cmd)...))
			}
			return printResult(cmd, f.GetTimed(cmd.Context(), args[0], callOptions(cmd)...))
		}),
	}
	cmd.Flags().Bool("permanent", false, "read the eden variant")
	cmd.Flags().Bool("local", false, "consult and populate the local tier")
	return cmd
}

func newPutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Write a value; JSON values are stored as documents",
		Args:  cobra.ExactArgs(2),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			return f.Put(cmd.Context(), args[0], parseValue(args[1]), callOptions(cmd)...)
		}),
	}
	cmd.Flags().Bool("permanent", false, "store without expiry")
	return cmd
}

func newDelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete the timed and eden variants of a key",
		Args:  cobra.ExactArgs(1),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			ok, err := f.Del(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printValue(cmd, ok)
		}),
	}
}

func newHGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hget <key> <field>",
		Short: "Read one field of a hash",
		Args:  cobra.ExactArgs(2),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			return printResult(cmd, f.GetHash(cmd.Context(), args[0], args[1], callOptions(cmd)...))
		}),
	}
	cmd.Flags().Bool("local", false, "consult and populate the local tier")
	return cmd
}

func newHGetAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hgetall <key>",
		Short: "Read every field of a hash",
		Args:  cobra.ExactArgs(1),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			return printResult(cmd, f.GetHashAll(cmd.Context(), args[0]))
		}),
	}
}

func newHPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hput <key> <field> <value>",
		Short: "Write one field of a hash",
		Args:  cobra.ExactArgs(3),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			return f.PutHash(cmd.Context(), args[0], args[1], parseValue(args[2]))
		}),
	}
}

func newHDelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hdel <key> <field>",
		Short: "Delete one field of a hash",
		Args:  cobra.ExactArgs(2),
		RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
			ok, err := f.DelHash(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printValue(cmd, ok)
		}),
	}
}

func newNilCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nil",
		Short: "Manage negative-cache flags",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "put <key>",
			Short: "Record a miss for key",
			Args:  cobra.ExactArgs(1),
			RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
				return f.PutNilFlag(cmd.Context(), args[0])
			}),
		},
		&cobra.Command{
			Use:   "has <key>",
			Short: "Report whether key is known absent",
			Args:  cobra.ExactArgs(1),
			RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
				ok, err := f.HasNilFlag(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printValue(cmd, ok)
			}),
		},
		&cobra.Command{
			Use:   "del <key>",
			Short: "Clear the miss counter of key",
			Args:  cobra.ExactArgs(1),
			RunE: withFacade(func(cmd *cobra.Command, f *cacheutil.Facade, args []string) error {
				ok, err := f.DelNilFlag(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printValue(cmd, ok)
			}),
		},
	)
	return cmd
}

func newKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys <key>",
		Short: "Print the physical keys a logical key maps to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			keys := cacheutil.NewKeys(cfg.KeyPrefix())
			for _, t := range []cacheutil.Type{cacheutil.TypeTimed, cacheutil.TypeEden, cacheutil.TypeEdenHash, cacheutil.TypeNil} {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", t, keys.Build(t, args[0]))
			}
			return nil
		},
	}
}
