// Package main provides d21ctl, the operator CLI for schema, reference data
// and featured directories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/d21hq/d21/internal/cache"
	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/database"
	"github.com/d21hq/d21/internal/logging"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	dbURL    string
	logLevel string

	redisAddr     string
	redisPassword string
	redisDB       int
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "d21ctl",
		Short:         "Operate a D21 directory database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(g.logLevel, "text")
		},
	}

	cmd.PersistentFlags().StringVar(&g.dbURL, "database-url", envOr("DATABASE_URL", os.Getenv("DB_URL")), "PostgreSQL connection string")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis address holding cached reference data (empty: no cache)")
	cmd.PersistentFlags().StringVar(&g.redisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	cmd.PersistentFlags().IntVar(&g.redisDB, "redis-db", envInt("REDIS_DB", 0), "Redis database number")

	cmd.AddCommand(migrateCmd(g), seedCmd(g), featureCmd(g), tablesCmd(g))
	return cmd
}

func migrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), g, func(pool *pgxpool.Pool) error {
				if err := database.Migrate(cmd.Context(), pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}
}

func seedCmd(g *globals) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert team sizes and funding stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := database.DefaultSeed()
			if file != "" {
				var err error
				if data, err = os.ReadFile(file); err != nil {
					return fmt.Errorf("read seed file: %w", err)
				}
			}
			sd, err := database.ParseSeed(data)
			if err != nil {
				return err
			}

			return withPool(cmd.Context(), g, func(pool *pgxpool.Pool) error {
				if err := database.Seed(cmd.Context(), pool, sd); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d team sizes, %d funding stages\n",
					len(sd.TeamSizes), len(sd.FundingStages))

				if g.redisAddr == "" {
					return nil
				}
				rc := newRedis(g)
				defer rc.Close()
				svc := core.NewService(database.New(pool), core.WithCache(rc))
				if err := svc.InvalidateReferenceData(cmd.Context()); err != nil {
					return fmt.Errorf("seeded, but cached reference data at %s is stale until it expires: %w", g.redisAddr, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reference cache cleared")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed YAML file (default: embedded seed)")
	return cmd
}

func featureCmd(g *globals) *cobra.Command {
	var (
		order int
		off   bool
	)

	cmd := &cobra.Command{
		Use:   "feature <slug>",
		Short: "Feature a directory on the landing page, or un-feature it with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pos *int
			if cmd.Flags().Changed("order") {
				pos = &order
			}

			return withPool(cmd.Context(), g, func(pool *pgxpool.Pool) error {
				svc := core.NewService(database.New(pool))
				if err := svc.SetDirectoryFeatured(cmd.Context(), args[0], !off, pos); err != nil {
					return err
				}
				state := "featured"
				if off {
					state = "unfeatured"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], state)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&order, "order", 0, "Position among featured directories (lower first)")
	cmd.Flags().BoolVar(&off, "off", false, "Remove the directory from the featured list")
	return cmd
}

func tablesCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the public tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), g, func(pool *pgxpool.Pool) error {
				tables, err := database.New(pool).ListTables(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range tables {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}
}

// withPool opens a small pool for one command.
func withPool(ctx context.Context, g *globals, fn func(*pgxpool.Pool) error) error {
	if g.dbURL == "" {
		return fmt.Errorf("no database: set DATABASE_URL or pass --database-url")
	}
	pool, err := database.Connect(ctx, database.PoolConfig{URL: g.dbURL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func newRedis(g *globals) *cache.Redis {
	return cache.NewRedis(cache.Options{
		Addr:     g.redisAddr,
		Password: g.redisPassword,
		DB:       g.redisDB,
	})
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
