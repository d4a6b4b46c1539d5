package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/AquariesX/quick-delivey-sub001/internal/config"
	"github.com/AquariesX/quick-delivey-sub001/internal/database"
	"github.com/AquariesX/quick-delivey-sub001/internal/domain"
	"github.com/AquariesX/quick-delivey-sub001/internal/security"
	"github.com/AquariesX/quick-delivey-sub001/internal/tools/common"
	"github.com/AquariesX/quick-delivey-sub001/internal/tools/ui"
)

type options struct {
	envFile             string
	bootstrapAdminEmail string
	ci                  bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database schema and seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newRotateTokenCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply schema migrations and seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)

				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				details := []string{"accounts schema migrated"}

				email := cfg.BootstrapAdminEmail
				if opts.bootstrapAdminEmail != "" {
					email = opts.bootstrapAdminEmail
				}
				report, err := database.Seed(db, email)
				if err != nil {
					return details, err
				}
				switch {
				case report.CreatedAdmin:
					details = append(details, "bootstrap admin created: "+domain.NormalizeEmail(email))
				case email != "":
					details = append(details, "bootstrap admin already present: "+domain.NormalizeEmail(email))
				default:
					details = append(details, "no bootstrap admin email configured, skipped")
				}
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed apply", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed dry-run", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)

				details := []string{"would run AutoMigrate for: accounts"}
				email := cfg.BootstrapAdminEmail
				if opts.bootstrapAdminEmail != "" {
					email = opts.bootstrapAdminEmail
				}
				email = domain.NormalizeEmail(email)
				if email == "" {
					details = append(details, "no bootstrap admin email configured, nothing to seed")
					return details, nil
				}

				var existing domain.Account
				lookupErr := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
				switch {
				case lookupErr == nil:
					details = append(details, "bootstrap admin already present: "+email)
				case errors.Is(lookupErr, gorm.ErrRecordNotFound):
					details = append(details, "would create SUPER_ADMIN account: "+email)
				default:
					return details, lookupErr
				}
				details = append(details, "no mutation executed in dry-run mode")
				return details, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed dry-run", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

// newRotateTokenCommand mints a fresh verification token for an account whose
// activation email was lost. Token expiry anchors on created_at, so that is
// refreshed alongside the token.
func newRotateTokenCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "rotate-token",
		Short: "Issue a fresh verification token for an unverified account",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed rotate-token", func(ctx context.Context) ([]string, error) {
				email = domain.NormalizeEmail(email)
				if email == "" {
					return nil, fmt.Errorf("email is required")
				}
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)

				var account domain.Account
				if err := db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return nil, fmt.Errorf("no account for %s", email)
					}
					return nil, err
				}
				if account.EmailVerified {
					return nil, fmt.Errorf("account %s is already verified", email)
				}

				token, err := security.RandomToken(32)
				if err != nil {
					return nil, err
				}
				res := db.WithContext(ctx).Model(&domain.Account{}).
					Where("id = ?", account.ID).
					Updates(map[string]any{
						"verification_token": token,
						"created_at":         time.Now().UTC(),
					})
				if res.Error != nil {
					return nil, res.Error
				}
				return []string{
					"verification token rotated for: " + email,
					"token: " + token,
				}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed rotate-token", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
