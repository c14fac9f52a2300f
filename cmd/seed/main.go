package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/config"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("restopos.seed")

type rootOptions struct {
	DatabaseURL string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap a restaurant database",
		Long: `Apply the schema, create the first administrator and open the cash register.

The database URL comes from --database-url, then DATABASE_URL / CONFIG_PATH.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
				return err
			}
			if opts.DatabaseURL == "" {
				opts.DatabaseURL = cfg.DatabaseURL
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "Postgres connection URL")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAdminCommand(opts))
	cmd.AddCommand(newCashCommand(opts))

	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.Migrate(opts.DatabaseURL)
		},
	}
}

func newAdminCommand(opts *rootOptions) *cobra.Command {
	var login, password string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an ADMIN account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if login == "" {
				login = os.Getenv("SEED_LOGIN")
			}
			if password == "" {
				password = os.Getenv("SEED_PASSWORD")
			}
			if login == "" {
				login = "administrator"
			}
			if password == "" {
				password = "password123"
				logger.Warningf("using default password 'password123'; change it immediately in production")
			}

			return withPool(cmd.Context(), opts.DatabaseURL, func(ctx context.Context, pool *pgxpool.Pool) error {
				users := service.NewUserService(pool, func(db database.DBTX) service.UserStore {
					return database.New(db)
				})
				result, err := users.Create(ctx, service.CreateUserRequest{
					Login:    login,
					Password: password,
					Role:     enum.UserRoleAdmin,
				})
				if service.KindOf(err) == service.KindIntegrity {
					fmt.Fprintf(cmd.OutOrStdout(), "user %q already exists, nothing to do\n", login)
					return nil
				}
				if err != nil {
					return fmt.Errorf("create admin: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", result.User.Login, result.User.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "admin login (6 to 30 characters)")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

func newCashCommand(opts *rootOptions) *cobra.Command {
	var opening string

	cmd := &cobra.Command{
		Use:   "cash",
		Short: "Initialize the cash register with an opening balance",
		Long:  "Initialize the cash register once. Running it again fails; the balance then only moves through payments and expenses.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.Parse(opening)
			if err != nil {
				return fmt.Errorf("invalid --opening %q: %w", opening, err)
			}

			return withPool(cmd.Context(), opts.DatabaseURL, func(ctx context.Context, pool *pgxpool.Pool) error {
				ledger := service.NewLedgerService(pool, func(db database.DBTX) service.LedgerStore {
					return database.New(db)
				})
				cash, err := ledger.InitCash(ctx, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cash register opened with %s %s\n", money.String(cash.Balance), enum.Currency)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opening, "opening", "0", "opening balance, e.g. 10000.00")
	return cmd
}

func withPool(ctx context.Context, url string, fn func(context.Context, *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Debugf("connected to database")
	return fn(ctx, pool)
}
