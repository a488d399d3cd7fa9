// AngelaMos | 2026
// tools.go

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/license-gate/internal/auth"
	"github.com/carterperez-dev/templates/license-gate/internal/core"
	"github.com/carterperez-dev/templates/license-gate/internal/license"
)

func generateCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate TIER",
		Short: "Print fresh license codes for a tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			tiers, err := license.NewTiers(cfg.License.Tiers)
			if err != nil {
				return err
			}

			tier, ok := tiers.ByName(args[0])
			if !ok {
				return fmt.Errorf("unknown tier %q, expected one of %s",
					args[0], strings.Join(tiers.Names(), ", "))
			}

			codes, err := license.GenerateCodes(tier, count)
			if err != nil {
				return err
			}
			for _, c := range codes {
				cmd.Println(c)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of codes")

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [PASSWORD]",
		Short: "Hash an admin password for admin.password_hash",
		Long:  "Reads the password from the argument or, when omitted, from the first line of stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				in := bufio.NewScanner(cmd.InOrStdin())
				if in.Scan() {
					password = strings.TrimSpace(in.Text())
				}
			}
			if len(password) < 8 {
				return errors.New("password must be at least 8 characters")
			}

			hash, err := core.HashPassword(password)
			if err != nil {
				return err
			}
			cmd.Println(hash)
			return nil
		},
	}
}

func keygenCmd() *cobra.Command {
	var privatePath, publicPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write an ES256 key pair for signing session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}
			cmd.Printf("Wrote %s and %s\n", privatePath, publicPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&privatePath, "private", "keys/private.pem", "private key path")
	cmd.Flags().StringVar(&publicPath, "public", "keys/public.pem", "public key path")

	return cmd
}
