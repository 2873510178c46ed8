package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	goFactor "github.com/MrEthical07/goFactor"
	"github.com/MrEthical07/goFactor/logging"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gofactor",
		Short:         "Administer goFactor identities and services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", defaultEnvFile, "dotenv file loaded before GOFACTOR_* overrides")

	root.AddCommand(
		newIdentityCmd(a),
		newServiceCmd(a),
		newTokenCmd(a),
		newSchemaCmd(a),
		newConfigCmd(a),
	)
	return root
}

func newIdentityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "identity", Short: "Manage client identities"}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an identity and print its admission key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			id, err := engine.CreateIdentity(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Info("identity created", logging.UID(id.UID))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uid:     %s\n", id.UID)
			fmt.Fprintf(out, "api_key: %s\n", id.APIKey)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <uid>",
		Short: "Print an identity's enrolled factors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			c, err := a.backend.store.LookupByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uid:        %s\n", c.UID)
			fmt.Fprintf(out, "factors:    %s\n", strings.Join(c.Factors.Names(), ","))
			fmt.Fprintf(out, "username:   %s\n", c.Username)
			fmt.Fprintf(out, "email:      %s\n", c.Email)
			fmt.Fprintf(out, "public_key: %t\n", c.PublicKey != "")
			fmt.Fprintf(out, "totp_key:   %t\n", c.TOTPKey != "")
			if c.EmailToken != "" {
				fmt.Fprintf(out, "email_challenge_expires: %s\n", time.Unix(c.EmailExpiry, 0).UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <uid>",
		Short: "Delete an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := engine.DeleteIdentity(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, show, del)
	return cmd
}

func newServiceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "service", Short: "Manage relying services"}
	register := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a service and print its shared secret once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			svc, err := engine.RegisterService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "service: %s\n", svc.Name)
			fmt.Fprintf(out, "secret:  %s\n", svc.SharedSecret)
			return nil
		},
	}
	cmd.AddCommand(register)
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Inspect service tokens"}

	var service string
	verify := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token against a service secret and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == "" {
				return fmt.Errorf("--service is required")
			}
			engine, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			claims, err := engine.VerifyToken(cmd.Context(), args[0], service)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sub: %s\n", claims.Subject)
			fmt.Fprintf(out, "amr: %s\n", strings.Join(claims.Methods, ","))
			if claims.ExpiresAt != nil {
				fmt.Fprintf(out, "exp: %s\n", claims.ExpiresAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	verify.Flags().StringVarP(&service, "service", "s", "", "service the token was issued for")

	cmd.AddCommand(verify)
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "schema", Short: "Manage the store schema"}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.open(cmd.Context()); err != nil {
				return err
			}
			if err := a.backend.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
	cmd.AddCommand(migrate)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Inspect configuration"}

	var failOn string
	lint := &cobra.Command{
		Use:   "lint",
		Short: "Report risky settings in the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseSeverity(failOn)
			if err != nil {
				return err
			}
			result := a.cfg.Lint()
			out := cmd.OutOrStdout()
			for _, w := range result {
				fmt.Fprintf(out, "%-5s %-24s %s\n", w.Severity, w.Code, w.Message)
			}
			if len(result) == 0 {
				fmt.Fprintln(out, "no findings")
			}
			return result.AsError(threshold)
		},
	}
	lint.Flags().StringVar(&failOn, "fail-on", "high", "lowest severity that fails the command: info, warn, high")

	cmd.AddCommand(lint)
	return cmd
}

func parseSeverity(s string) (goFactor.LintSeverity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return goFactor.LintInfo, nil
	case "warn":
		return goFactor.LintWarn, nil
	case "high", "":
		return goFactor.LintHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}
