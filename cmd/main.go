package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/cometbft/cometbft/crypto/tmhash"
	"github.com/spf13/cobra"

	"github.com/Panorama-Block/fairyring-monitor/internal/app"
	"github.com/Panorama-Block/fairyring-monitor/internal/config"
	"github.com/Panorama-Block/fairyring-monitor/internal/extractor"
)

var addressPattern = regexp.MustCompile(`^[a-z]+1[a-z0-9]+$`)

// runtimeError marks failures that happen after the command line and the
// configuration were accepted.
type runtimeError struct{ err error }

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code. Errors
// reported through cobra are usage or configuration errors unless they are
// runtime errors.
func run(ctx context.Context, args []string) int {
	code := app.ExitOK
	root := newRootCmd(&code)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var rtErr *runtimeError
		if errors.As(err, &rtErr) {
			return app.ExitRuntime
		}
		return app.ExitUsage
	}
	return code
}

func newRootCmd(code *int) *cobra.Command {
	root := &cobra.Command{
		Use:   "fairyring-monitor",
		Short: "Watch a FairyRing node and send webhook alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Help()
			return errors.New("missing command")
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "subscribe_aggregated_key",
		Short: "Alert on every aggregated threshold key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, "")
			if err != nil {
				return err
			}
			*code = a.RunAggregatedKey(cmd.Context())
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "subscribe_transfer <address> <amount>",
		Short: "Alert on transfers of address above amount (smallest denomination)",
		Args: cobra.MatchAll(cobra.ExactArgs(2), func(_ *cobra.Command, args []string) error {
			_, err := normalizeAddress(args[0])
			return err
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := normalizeAddress(args[0])
			if err != nil {
				return err
			}
			threshold, err := extractor.ParseThreshold(args[1])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, "")
			if err != nil {
				return err
			}
			*code = a.RunTransfer(cmd.Context(), address, threshold)
			return nil
		},
	})

	var strategy string
	encryptedCmd := &cobra.Command{
		Use:   "subscribe_encrypted_tx <tx_hash>",
		Short: "Alert once a submitted encrypted transaction executes",
		Args: cobra.MatchAll(cobra.ExactArgs(1), func(_ *cobra.Command, args []string) error {
			return validateTxHash(args[0])
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, strategy)
			if err != nil {
				return err
			}
			*code = a.RunEncryptedTx(cmd.Context(), args[0])
			return nil
		},
	}
	encryptedCmd.Flags().StringVar(&strategy, "strategy", "",
		fmt.Sprintf("confirmation strategy (%s|%s), overrides confirm_strategy", config.StrategyNewBlock, config.StrategyExecuted))
	root.AddCommand(encryptedCmd)

	return root
}

func newApp(cmd *cobra.Command, strategy string) (*app.App, error) {
	cmd.SilenceUsage = true

	cfg := config.LoadConfig()
	if strategy != "" {
		cfg.ConfirmStrategy = strategy
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	a, err := app.NewApp(cfg, app.NewLogger(cfg.LogLevel))
	if err != nil {
		return nil, &runtimeError{err: err}
	}
	return a, nil
}

// normalizeAddress accepts a lowercase or an all-uppercase bech32 address
// and returns it lowercase, the form the node indexes events with.
func normalizeAddress(address string) (string, error) {
	if address == strings.ToUpper(address) {
		address = strings.ToLower(address)
	}
	if !addressPattern.MatchString(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return address, nil
}

func validateTxHash(hash string) error {
	if strings.HasPrefix(hash, "0x") || strings.HasPrefix(hash, "0X") {
		return fmt.Errorf("invalid tx hash %q: drop the 0x prefix", hash)
	}
	if len(hash) != tmhash.Size*2 {
		return fmt.Errorf("invalid tx hash %q: want %d hex characters", hash, tmhash.Size*2)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return fmt.Errorf("invalid tx hash %q: %w", hash, err)
	}
	return nil
}
