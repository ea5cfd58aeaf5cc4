package main

import (
	"errors"
	"fmt"

	"talent-match/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var subject, clientID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a service token for the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			tok, err := jwt.NewHMACService(cfg.JWT.Secret, cfg.JWT.ExpiresIn).GenerateServiceToken(subject, clientID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "calling service name")
	cmd.Flags().StringVar(&clientID, "client", "", "restrict the token to one client")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
