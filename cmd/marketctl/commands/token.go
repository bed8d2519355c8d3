package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/repo"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bearer tokens",
	}
	cmd.AddCommand(mintCmd())
	return cmd
}

func mintCmd() *cobra.Command {
	var (
		actor string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a bearer token for an existing actor",
		Long:  "Mint a bearer token for an existing actor. Admin tokens can only be obtained this way.",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(actor)
			if err != nil {
				return fmt.Errorf("--actor: %w", err)
			}

			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			rec, err := repo.NewActorRepo(pool).GetByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("look up actor %s: %w", id, err)
			}

			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}
			token, expires, err := auth.NewIssuer(cfg.JWTSecret, ttl).Issue(rec.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "actor %s (%s), expires %s\n", rec.ID, rec.Role, expires.UTC().Format(time.RFC3339))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id to mint the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}
