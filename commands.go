package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guincho-oliveira/crm-api/config"
	"github.com/guincho-oliveira/crm-api/middleware"
	"github.com/guincho-oliveira/crm-api/models"
	"github.com/guincho-oliveira/crm-api/routes"
	"github.com/guincho-oliveira/crm-api/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "guincho-api",
		Short: "Guincho Oliveira CRM API",
		Long: `Back office API for a towing company: service orders, customers,
drivers, vehicles, the financial ledger and the dashboard.`,
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(createAdminCmd())
	root.AddCommand(auditCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the database and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withDatabase(ctx, func(cfg *config.Config, db *gorm.DB) error {
				if err := migrate(ctx, db); err != nil {
					return err
				}
				return serve(ctx, cfg, db)
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and seed the financial categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(_ *config.Config, db *gorm.DB) error {
				return migrate(cmd.Context(), db)
			})
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create the general administrator account if it does not exist",
		Long: `Creates the account named by PRIMARY_ADMIN_EMAIL with the password in
ADMIN_PASSWORD. An existing account is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(cfg *config.Config, db *gorm.DB) error {
				if err := migrate(cmd.Context(), db); err != nil {
					return err
				}
				opts := services.Options{
					Timeout: cfg.DBTimeout,
					Audit:   services.SyncAuditLogger{DB: db, Timeout: cfg.DBTimeout},
				}
				users := services.NewUserService(db, nil, nil, cfg.PrimaryAdminEmail, opts)
				user, created, err := users.EnsurePrimaryAdmin(cmd.Context(), name, os.Getenv("ADMIN_PASSWORD"))
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Administrador Geral criado: %s\n", user.Email)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Administrador Geral já existe: %s\n", user.Email)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrador Geral", "display name of the account")
	return cmd
}

func auditCmd() *cobra.Command {
	audit := &cobra.Command{Use: "audit", Short: "Inspect the audit trail"}

	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the most recent audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(cfg *config.Config, db *gorm.DB) error {
				entries, err := services.NewAuditService(db, services.Options{Timeout: cfg.DBTimeout}).List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printAuditTable(cmd.OutOrStdout(), entries, cfg.Location())
				return nil
			})
		},
	}
	tail.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries to show")
	audit.AddCommand(tail)
	return audit
}

func printAuditTable(w io.Writer, entries []models.AuditLogEntry, loc *time.Location) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Data", "Usuário", "Ação", "Detalhes"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.Timestamp.In(loc).Format("02/01/2006 15:04:05"), e.UserName, e.Action, e.Details})
	}
	tw.Render()
}

// withDatabase loads the configuration and opens the database for one command
func withDatabase(ctx context.Context, fn func(*config.Config, *gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	return fn(cfg, db.WithContext(ctx))
}

func migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := services.SeedCategories(ctx, db); err != nil {
		return fmt.Errorf("failed to seed financial categories: %w", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}

// app is the running service with the resources that must be released on shutdown
type app struct {
	deps    routes.Deps
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*app, error) {
	logger := log.Default()
	loc := cfg.Location()
	a := &app{}

	auditLogger := services.NewAsyncAuditLogger(db, cfg.AuditBufferSize, cfg.DBTimeout, logger)
	a.closers = append(a.closers, auditLogger.Close)

	var events services.EventPublisher = services.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		a.closers = append(a.closers, func() {
			if err := kafka.Close(); err != nil {
				logger.Printf("failed to close kafka writer: %v", err)
			}
		})
		events = kafka
		logger.Printf("Publishing domain events to %s", cfg.KafkaTopic)
	}

	opts := services.Options{
		Timeout:  cfg.DBTimeout,
		Location: loc,
		Audit:    auditLogger,
		Events:   events,
		Logger:   logger,
	}

	var attachments services.AttachmentStore
	var localFiles *services.LocalAttachmentStore
	if cfg.UsesS3() {
		s3Store, err := services.NewS3AttachmentStore(ctx, services.S3Settings{
			Region:          cfg.AWSRegion,
			Bucket:          cfg.AWSS3Bucket,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to configure S3: %w", err)
		}
		attachments = s3Store
		logger.Printf("Storing attachments in s3://%s", cfg.AWSS3Bucket)
	} else {
		localFiles = services.NewLocalAttachmentStore(cfg.UploadDir, "/api/anexos")
		attachments = localFiles
		logger.Printf("Storing attachments in %s", cfg.UploadDir)
	}

	tokens := services.NewTokenIssuer(services.TokenSettings{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}, nil)

	a.deps = routes.Deps{
		DB: db,
		Auth: middleware.AuthConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
		Location:    loc,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Users:       services.NewUserService(db, tokens, nil, cfg.PrimaryAdminEmail, opts),
		Customers:   services.NewCustomerService(db, opts),
		Drivers:     services.NewDriverService(db, opts),
		Vehicles:    services.NewVehicleService(db, opts),
		Orders:      services.NewOrderService(db, attachments, opts),
		Ledger:      services.NewLedgerService(db, opts),
		Dashboard:   services.NewDashboardService(db, opts),
		Audit:       services.NewAuditService(db, opts),
		LocalFiles:  localFiles,
	}
	return a, nil
}

func serve(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	a, err := buildApp(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(a.deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
