// Command authcz is an operator tool over the authorization core: it
// validates a settings file and answers the admin and impersonation
// questions the way the in-process oracle would.
//
// Exit codes: 0 on a positive decision, 2 on a negative one, 1 on
// configuration errors.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironvale/authcz/authz"
	"github.com/ironvale/authcz/settings"
)

var (
	cfgPath string
	verbose bool

	injectUser      bool
	injectAdminUser bool

	cfg *settings.Settings
)

var rootCmd = &cobra.Command{
	Use:   "authcz",
	Short: "Query and validate admin-DN and impersonation configuration",
	Long: `authcz loads a security settings file and evaluates it the way the
in-process authorization oracle does: admin distinguished names are compared
in canonical form and impersonation allowlists are wildcard patterns over
target usernames.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = settings.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		// Flags overlay the file and environment values.
		if cmd.Flags().Changed("inject-user") {
			cfg.Security.Unsupported.InjectUser.Enabled = injectUser
		}
		if cmd.Flags().Changed("inject-admin-user") {
			cfg.Security.Unsupported.InjectAdminUser.Enabled = injectAdminUser
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the settings file and report what the oracle would see",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats := newOracle().Stats()
		fmt.Printf("admin DNs:            %d\n", stats.AdminDNs)
		fmt.Printf("admin usernames:      %d\n", stats.AdminUsernames)
		fmt.Printf("DN impersonations:    %d\n", stats.DNImpersonations)
		fmt.Printf("REST impersonations:  %d\n", stats.RestImpersonations)
		return nil
	},
}

var checkAdminCmd = &cobra.Command{
	Use:   "check-admin <dn>",
	Short: "Report whether a distinguished name is a configured admin",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if newOracle().IsAdminDN(args[0]) {
			fmt.Println("admin")
			return
		}
		fmt.Println("not admin")
		os.Exit(2)
	},
}

var checkImpersonationCmd = &cobra.Command{
	Use:   "check-impersonation <grantor> <target>",
	Short: "Report whether a grantor may impersonate a target username",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		oracle := newOracle()
		grantorIsDN, _ := cmd.Flags().GetBool("dn")

		allowed := false
		if grantorIsDN {
			allowed = oracle.IsDNImpersonationAllowed(args[0], args[1])
		} else {
			allowed = oracle.IsRestImpersonationAllowed(args[0], args[1])
		}
		if allowed {
			fmt.Println("allowed")
			return
		}
		fmt.Println("denied")
		os.Exit(2)
	},
}

// newOracle builds the oracle with a logger that surfaces the same
// warnings the server would log at startup.
func newOracle() *authz.AdminDNs {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return authz.NewAdminDNs(cfg, logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "authcz.yml", "Path to the security settings file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every registered entry")
	rootCmd.PersistentFlags().BoolVar(&injectUser, "inject-user", false, "Override security.unsupported.inject_user.enabled")
	rootCmd.PersistentFlags().BoolVar(&injectAdminUser, "inject-admin-user", false, "Override security.unsupported.inject_admin_user.enabled")

	checkImpersonationCmd.Flags().Bool("dn", false, "Treat the grantor as a distinguished name instead of a REST username")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(checkAdminCmd)
	rootCmd.AddCommand(checkImpersonationCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
