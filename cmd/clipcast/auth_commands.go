package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the YouTube sign-in credential",
	}

	authCmd.AddCommand(newAuthSignInCommand(ctx))
	authCmd.AddCommand(newAuthSignOutCommand(ctx))
	authCmd.AddCommand(newAuthStatusCommand(ctx))

	return authCmd
}

func newAuthSignInCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-in",
		Short: "Sign in through the browser consent flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireClientID(); err != nil {
				return err
			}
			session, err := ctx.authSession()
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Opening browser for sign-in...")
			credential, err := session.SignIn(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in. Credential expires %s.\n",
				humanize.Time(credential.ExpiresAt))
			return nil
		},
	}
}

func newAuthSignOutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Revoke and remove the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := ctx.authSession()
			if err != nil {
				return err
			}
			if err := session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a valid credential is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := ctx.tokenStore()
			if err != nil {
				return err
			}
			credential := tokens.Get()
			if credential == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in. Credential expires %s.\n",
				humanize.Time(credential.ExpiresAt))
			return nil
		},
	}
}
