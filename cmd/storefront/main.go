package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ldcshop/storefront/internal/app"
	"github.com/ldcshop/storefront/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if errEnv := config.LoadDotEnv(); errEnv != nil {
		log.WithError(errEnv).Warn("ignoring .env")
	}

	var appCfg config.AppConfig
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Card-key storefront with gateway checkout and admin broadcasts",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&appCfg.ConfigPath, "config", "c", "", "config file (default $STOREFRONT_CONFIG or config.yaml)")

	rootCmd.AddCommand(serveCmd(&appCfg))
	rootCmd.AddCommand(migrateCmd(&appCfg))
	rootCmd.AddCommand(adminCmd(&appCfg))
	rootCmd.AddCommand(cardsCmd(&appCfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, *appCfg)
		},
	}
}

func migrateCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Migrate(cmd.Context(), *appCfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func adminCmd(appCfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	var (
		password    string
		super       bool
		permissions []string
	)
	create := &cobra.Command{
		Use:   "create [username]",
		Short: "Create an administrator",
		Long: `Create an administrator account.

The password is read from --password, or from the ADMIN_PASSWORD
environment variable when the flag is omitted.

Examples:
  storefront admin create root --super
  storefront admin create support --permission "POST /v0/admin/messages"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			admin, err := app.CreateAdmin(cmd.Context(), *appCfg, app.CreateAdminParams{
				Username:     args[0],
				Password:     password,
				Permissions:  permissions,
				IsSuperAdmin: super,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", admin.Username, admin.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&password, "password", "p", "", "admin password")
	create.Flags().BoolVar(&super, "super", false, "grant every permission")
	create.Flags().StringArrayVar(&permissions, "permission", nil, "permission key, e.g. \"GET /v0/admin/orders\" (repeatable)")
	cmd.AddCommand(create)
	return cmd
}

func cardsCmd(appCfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage card inventory",
	}

	var file string
	importCmd := &cobra.Command{
		Use:   "import [product-id]",
		Short: "Import card keys, one per line, from --file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			keys, err := readLines(in)
			if err != nil {
				return err
			}
			result, err := app.ImportCards(cmd.Context(), *appCfg, args[0], keys)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", result.Imported, result.Skipped)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "file with one key per line (default stdin)")
	cmd.AddCommand(importCmd)
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	return lines, scanner.Err()
}
