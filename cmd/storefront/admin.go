package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"example.com/map-storefront/internal/config"
	domoperator "example.com/map-storefront/internal/domain/operator"
	"example.com/map-storefront/internal/infra/security"
)

func hashPasswordCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for admin.password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			hash, err := security.NewBcryptService(cost).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the library default)")
	return cmd
}

func issueTokenCmd(configPath *string) *cobra.Command {
	var (
		email string
		role  string
	)
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Sign an operator token with admin.jwt_secret, for scripts and break-glass access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("admin.jwt_secret is not set")
			}
			code, err := domoperator.ParseRoleCode(role)
			if err != nil {
				return err
			}
			token, err := security.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.JWTExpiration).
				GenerateToken(&domoperator.Operator{Email: email, Name: email, RoleCode: code})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "operator email")
	cmd.Flags().StringVar(&role, "role", string(domoperator.RoleSupport), "operator role (ADMIN or SUPPORT)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
