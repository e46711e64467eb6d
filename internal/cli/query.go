package cli

import (
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/internal/wallet"
)

func NewTokensCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:           "tokens",
		Short:         "List the tokens a wallet holds (default: your wallet)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			app, err := NewApp(rootOpts)
			if err != nil {
				_ = formatter.Error(err)
				return err
			}
			defer app.Close()

			pk, err := resolveOwner(cmd, app, owner)
			if err != nil {
				_ = formatter.Error(err)
				return WrapExitError(ExitCommandError, "owner", err)
			}
			tokens, err := app.Orch.ListOwnedTokens(cmd.Context(), pk)
			if err != nil {
				_ = formatter.Error(err)
				return WrapExitError(exitCodeOf(err), "tokens", err)
			}
			return formatter.Tokens(tokens)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "wallet address to list")
	return cmd
}

// resolveOwner uses --owner when given, otherwise the configured wallet.
func resolveOwner(cmd *cobra.Command, app *App, owner string) (solana.PublicKey, error) {
	if owner != "" {
		return services.ParseAddress(owner)
	}
	if app.Cfg.Wallet.Empty() {
		return solana.PublicKey{}, services.ErrNoWallet
	}
	key, err := wallet.LoadKey(cmd.Context(), app.Cfg.Wallet)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PublicKey(), nil
}

func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var mint string
	cmd := &cobra.Command{
		Use:           "lookup",
		Short:         "Show name, symbol and image of a mint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			pk, err := services.ParseAddress(mint)
			if err != nil {
				_ = formatter.Error(err)
				return WrapExitError(ExitCommandError, "mint", err)
			}
			app, err := NewApp(rootOpts)
			if err != nil {
				_ = formatter.Error(err)
				return err
			}
			defer app.Close()

			md, err := app.Orch.LookupToken(cmd.Context(), pk)
			if err != nil {
				_ = formatter.Error(err)
				return WrapExitError(ExitFailure, "lookup", err)
			}
			return formatter.Metadata(pk.String(), md)
		},
	}
	cmd.Flags().StringVar(&mint, "mint", "", "mint address")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}
