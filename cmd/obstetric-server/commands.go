package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/obstetric/obstetric/internal/config"
	"github.com/obstetric/obstetric/internal/domain/staff"
	"github.com/obstetric/obstetric/internal/platform/db"
	"github.com/obstetric/obstetric/internal/platform/telegram"
	"github.com/obstetric/obstetric/internal/seed"
	"github.com/obstetric/obstetric/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetInt("to")
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.UpTo(ctx, to)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this version (0 applies everything)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				table := tablewriter.NewWriter(os.Stdout)
				table.SetAutoWrapText(false)
				table.SetHeader([]string{"Version", "Name", "Status", "Applied at"})
				for _, st := range statuses {
					state, at := "pending", ""
					if st.Applied {
						state = "applied"
						if st.AppliedAt != nil {
							at = st.AppliedAt.Format(time.RFC3339)
						}
					}
					table.Append([]string{strconv.Itoa(st.Version), st.Name, state, at})
				}
				table.Render()
				return nil
			})
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	// MIGRATIONS_DIR overrides the SQL compiled into the binary.
	var fsys fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		fsys = os.DirFS(cfg.MigrationsDir)
	}
	return fn(ctx, db.NewMigrator(pool, fsys))
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the room and medication catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			catalog, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			return withPool(func(ctx context.Context, _ *config.Config, a *app) error {
				res, err := seed.Apply(ctx, catalog, a.rooms, a.medication)
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d room(s) and %d medication(s).\n", res.Rooms, res.Medications)
				return nil
			})
		},
	}
	cmd.Flags().String("file", "./seed/catalog.yaml", "Path to the catalog file")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := staff.CreateUserInput{}
			in.Username, _ = cmd.Flags().GetString("username")
			in.Password, _ = cmd.Flags().GetString("password")
			in.FullName, _ = cmd.Flags().GetString("name")
			in.Role, _ = cmd.Flags().GetString("role")
			if rut, _ := cmd.Flags().GetString("rut"); rut != "" {
				in.RUT = &rut
			}
			return withPool(func(ctx context.Context, _ *config.Config, a *app) error {
				u, err := a.staff.CreateUser(ctx, in)
				if err != nil {
					return err
				}
				fmt.Printf("Created %s (%s) with id %d.\n", u.Username, u.Role, u.ID)
				return nil
			})
		},
	}
	createCmd.Flags().String("username", "", "Login name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("name", "", "Full name")
	createCmd.Flags().String("role", "", "ADMIN, MEDICO, MATRONA, TENS, NEONATOLOGO or ADMINISTRATIVO")
	createCmd.Flags().String("rut", "", "Chilean RUT")
	_ = createCmd.MarkFlagRequired("username")
	_ = createCmd.MarkFlagRequired("password")
	_ = createCmd.MarkFlagRequired("role")
	cmd.AddCommand(createCmd)

	return cmd
}

func shiftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "Shift maintenance",
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Start due shifts and finish expired ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			every, _ := cmd.Flags().GetDuration("every")
			return withPool(func(ctx context.Context, _ *config.Config, a *app) error {
				run := func() error {
					res, err := a.staffing.ActivateShifts(ctx, time.Now())
					if err != nil {
						return err
					}
					fmt.Printf("%s activated=%d finished=%d\n", time.Now().Format(time.RFC3339), res.Activated, res.Finished)
					return nil
				}
				if err := run(); err != nil || every <= 0 {
					return err
				}
				ticker := time.NewTicker(every)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := run(); err != nil {
							fmt.Fprintf(os.Stderr, "activate: %v\n", err)
						}
					}
				}
			})
		},
	}
	activateCmd.Flags().Duration("every", 0, "Repeat on this interval until interrupted")
	cmd.AddCommand(activateCmd)

	return cmd
}

func telegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Chat bot commands",
	}

	pollCmd := &cobra.Command{
		Use:   "poll",
		Short: "Receive bot updates by long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, a *app) error {
				if a.bot == nil {
					return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
				}
				logger := newLogger(cfg.Env)
				logger.Info().Msg("polling telegram updates")
				err := telegram.NewPoller(a.telegram, a.bot, cfg.TelegramPollTimeout, logger).Run(ctx)
				if err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			})
		},
	}
	cmd.AddCommand(pollCmd)

	return cmd
}
