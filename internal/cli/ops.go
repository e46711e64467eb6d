package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/codewithmide/token-creator/internal/ledger"
	"github.com/codewithmide/token-creator/internal/models"
	"github.com/codewithmide/token-creator/internal/services"
	"github.com/codewithmide/token-creator/internal/wallet"
)

type createFlags struct{ name, symbol, uri string }

func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &createFlags{}
	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a token with metadata (9 decimals, you hold both authorities)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, rootOpts, models.Input{
				Kind:   models.KindCreate,
				Create: &models.CreateInput{Name: f.name, Symbol: f.symbol, URI: f.uri},
			})
		},
	}
	cmd.Flags().StringVar(&f.name, "name", "", "token name")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&f.uri, "uri", "", "metadata JSON URI")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

type amountFlags struct{ mint, amount, to, delegate string }

func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	f := &amountFlags{}
	cmd := &cobra.Command{
		Use:           "mint",
		Short:         "Mint tokens to a wallet (defaults to your own)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, rootOpts, models.Input{
				Kind: models.KindMint,
				Mint: &models.MintInput{Mint: f.mint, Recipient: f.to, Amount: f.amount},
			})
		},
	}
	cmd.Flags().StringVar(&f.mint, "mint", "", "mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in whole tokens, e.g. 1.5")
	cmd.Flags().StringVar(&f.to, "to", "", "recipient wallet (default: your wallet)")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	f := &amountFlags{}
	cmd := &cobra.Command{
		Use:           "transfer",
		Short:         "Transfer tokens to another wallet",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, rootOpts, models.Input{
				Kind:     models.KindTransfer,
				Transfer: &models.TransferInput{Mint: f.mint, Recipient: f.to, Amount: f.amount},
			})
		},
	}
	cmd.Flags().StringVar(&f.mint, "mint", "", "mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in whole tokens")
	cmd.Flags().StringVar(&f.to, "to", "", "recipient wallet")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func NewBurnCommand(rootOpts *RootOptions) *cobra.Command {
	f := &amountFlags{}
	cmd := &cobra.Command{
		Use:           "burn",
		Short:         "Burn tokens from your own token account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, rootOpts, models.Input{
				Kind: models.KindBurn,
				Burn: &models.BurnInput{Mint: f.mint, Amount: f.amount},
			})
		},
	}
	cmd.Flags().StringVar(&f.mint, "mint", "", "mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount in whole tokens")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func NewDelegateCommand(rootOpts *RootOptions) *cobra.Command {
	f := &amountFlags{}
	cmd := &cobra.Command{
		Use:   "delegate",
		Short: "Allow another wallet to spend up to an amount of your tokens",
		Long: `Approve a delegate on your token account. A new approval replaces the
previous one; allowances do not add up.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, rootOpts, models.Input{
				Kind:     models.KindDelegate,
				Delegate: &models.DelegateInput{Mint: f.mint, Delegate: f.delegate, Amount: f.amount},
			})
		},
	}
	cmd.Flags().StringVar(&f.mint, "mint", "", "mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "allowance in whole tokens")
	cmd.Flags().StringVar(&f.delegate, "delegate", "", "delegate wallet")
	_ = cmd.MarkFlagRequired("mint")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("delegate")
	return cmd
}

// runOperation connects the local wallet and runs one operation end to end.
func runOperation(cmd *cobra.Command, opts *RootOptions, in models.Input) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(opts)
	if err != nil {
		_ = formatter.Error(err)
		return err
	}
	defer app.Close()

	sess, err := connectLocalWallet(ctx, app, opts, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		_ = formatter.Error(err)
		return WrapExitError(ExitCommandError, "wallet", err)
	}

	out := app.Orch.Run(ctx, sess, in)
	if err := formatter.Outcome(out); err != nil {
		return err
	}
	if out.Signature != "" && opts.Format == "text" {
		fmt.Fprintln(cmd.OutOrStdout(), ledger.ExplorerURL(out.Signature, app.Cfg.Solana.RPCURL))
	}
	if out.Err != nil {
		return WrapExitError(exitCodeOf(out.Err), string(out.Kind), out.Err)
	}
	return nil
}

// connectLocalWallet loads the configured key and opens a session for it.
func connectLocalWallet(ctx context.Context, app *App, opts *RootOptions, in io.Reader, prompt io.Writer) (*services.Session, error) {
	if app.Cfg.Wallet.Empty() {
		return nil, services.ErrNoWallet
	}
	key, err := wallet.LoadKey(ctx, app.Cfg.Wallet)
	if err != nil {
		return nil, err
	}
	var approve wallet.Approver
	if !opts.Yes {
		approve = PromptApprover(in, prompt)
	}
	w := wallet.NewKeypairWallet(key, app.Ledger, approve, app.Log.With("component", "wallet"))
	return services.NewSignerSession(w), nil
}

// PromptApprover asks on prompt and reads y/N from in. Anything but yes rejects.
func PromptApprover(in io.Reader, prompt io.Writer) wallet.Approver {
	reader := bufio.NewReader(in)
	return func(tx *solana.Transaction) bool {
		fmt.Fprintf(prompt, "Sign transaction with %d instruction(s), fee payer %s? [y/N] ",
			len(tx.Message.Instructions), tx.Message.AccountKeys[0])
		line, _ := reader.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
