package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/auth"
	"github.com/unclebandit/collabhub-backend/internal/db"
	"github.com/unclebandit/collabhub-backend/internal/seed"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openDB(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := db.Apply(cmd.Context(), conn); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d schema statements\n", len(db.Statements()))
			return nil
		},
	}
}

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixtures.yaml]",
		Short: "Load demo accounts and campaigns",
		Long: `Load accounts, token grants, profiles and campaigns from a YAML file.

Seeding goes through the same services as the API and can be re-run;
existing accounts and campaigns are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "seed/fixtures.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			f, err := seed.Load(path)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				sum, err := seed.Apply(cmd.Context(), a, f, opts.log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d accounts and %d campaigns (%d skipped)\n", sum.Accounts, sum.Campaigns, sum.Skipped)
				return nil
			})
		},
	}
}

func NewGrantCommand(opts *RootOptions) *cobra.Command {
	var reference string
	cmd := &cobra.Command{
		Use:   "grant <account-id> <amount>",
		Short: "Credit earned tokens to an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount int64
			if _, err := fmt.Sscan(args[1], &amount); err != nil {
				return fmt.Errorf("amount must be an integer: %w", err)
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				res, err := a.Ledger.Grant(cmd.Context(), auth.System, args[0], amount, reference)
				if err != nil {
					return err
				}
				if res.Replayed {
					fmt.Fprintf(cmd.OutOrStdout(), "Grant %s already applied, balance %d\n", reference, res.Balance)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Granted %d tokens, balance %d\n", amount, res.Balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reference, "reference", "", "idempotency reference; repeated grants with the same reference apply once")
	return cmd
}

func NewVerifyLedgerCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-ledger [account-id]",
		Short: "Check that balances equal the sum of ledger entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if len(args) == 1 {
					r, err := a.Ledger.Verify(cmd.Context(), auth.System, args[0])
					if err != nil {
						return err
					}
					if !r.Consistent {
						return fmt.Errorf("account %s: balance %d != entry sum %d", r.AccountID, r.Balance, r.EntrySum)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%d entries, balance %d)\n", r.AccountID, r.Entries, r.Balance)
					return nil
				}

				reports, err := a.Ledger.VerifyAll(cmd.Context())
				if err != nil {
					return err
				}
				var bad []string
				for _, r := range reports {
					if !r.Consistent {
						bad = append(bad, r.AccountID)
					}
				}
				if len(bad) > 0 {
					return fmt.Errorf("%d of %d accounts inconsistent: %s", len(bad), len(reports), strings.Join(bad, ", "))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "All %d accounts consistent\n", len(reports))
				return nil
			})
		},
	}
}

func NewCreateAdminCommand(opts *RootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-admin <email>",
		Short: "Create an admin account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				acc, err := a.Accounts.CreateAdmin(cmd.Context(), name, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", acc.ID, acc.Email)
				if a.Sessions != nil {
					token, expires, err := a.Sessions.Issue(acc)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Session token (expires %s):\n%s\n", expires.Format("2006-01-02 15:04"), token)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	return cmd
}
