package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	heavyride "github.com/teamqeematech/heavyride-go"
)

type cliOptions struct {
	baseURL     string
	locale      string
	redisAddr   string
	sessionFile string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "heavyride",
		Short:         "HeavyRide admin API client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultSessionFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultSessionFile = filepath.Join(home, ".heavyride", "session.json")
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", envOr("HEAVYRIDE_BASE_URL", "https://heavy-ride.teamqeematech.site/api/"), "backend origin")
	flags.StringVar(&opts.locale, "locale", envOr("HEAVYRIDE_LOCALE", "en"), "Accept-Language value")
	flags.StringVar(&opts.redisAddr, "redis", envOr("HEAVYRIDE_REDIS_ADDR", "localhost:6379"), "redis address for the session store")
	flags.StringVar(&opts.sessionFile, "session-file", envOr("HEAVYRIDE_SESSION_FILE", defaultSessionFile), "durable session mirror path")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newProfileCmd(opts),
		newListCmd(opts, "riders", "List riders", (*heavyride.Client).ListRiders),
		newListCmd(opts, "drivers", "List drivers", (*heavyride.Client).ListDrivers),
		newListCmd(opts, "cranes", "List cranes", (*heavyride.Client).ListCranes),
		newListCmd(opts, "admins", "List admins", (*heavyride.Client).ListAdmins),
		newSettingsCmd(opts),
		newStatsCmd(opts),
	)

	return root
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func buildClient(cmd *cobra.Command, opts *cliOptions) (*heavyride.Client, error) {
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	return heavyride.New().
		WithBaseURL(opts.baseURL).
		WithLocale(opts.locale).
		WithRedis(redis.NewClient(&redis.Options{Addr: opts.redisAddr})).
		WithSessionFile(opts.sessionFile).
		WithLogger(logger).
		Build(cmd.Context())
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func newLoginCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Login(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("login failed: %s", heavyride.ErrorMessage(err, err.Error()))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", client.Role())
			return nil
		},
	}
}

func newLogoutCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			return client.Logout(cmd.Context())
		},
	}
}

func newProfileCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the authenticated profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			user, err := client.FetchProfile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, user)
		},
	}
}

type listFunc func(*heavyride.Client, context.Context, heavyride.ListQuery) ([]any, error)

func newListCmd(opts *cliOptions, use, short string, fn listFunc) *cobra.Command {
	var page, perPage int
	var search string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := fn(client, cmd.Context(), heavyride.ListQuery{Page: page, PerPage: perPage, Search: search})
			if err != nil {
				return err
			}
			return printJSON(cmd, items)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "page size")
	cmd.Flags().StringVar(&search, "search", "", "search filter")
	return cmd
}

func newSettingsCmd(opts *cliOptions) *cobra.Command {
	settings := &cobra.Command{
		Use:   "settings",
		Short: "Read or write platform settings",
	}

	settings.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the settings document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			doc, err := client.GetSettings(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		},
	})

	settings.AddCommand(&cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Update settings fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := make(map[string]any, len(args))
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid field %q, expected key=value", arg)
				}
				fields[key] = value
			}

			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			payload, err := client.UpdateSettings(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return printJSON(cmd, payload)
		},
	})

	return settings
}

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := buildClient(cmd, opts)
			if err != nil {
				return err
			}
			defer client.Close()

			stats, err := client.FetchDashboardStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}
