package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/backend"
	"github.com/Pery99/billpay/guard"
	"github.com/Pery99/billpay/wallet"
)

var balanceWatch bool

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your wallet balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := theApp
		if err := a.ensureRoute(cmd.Context(), guard.RouteProtected); err != nil {
			return err
		}
		token, err := a.requireToken()
		if err != nil {
			return err
		}

		if !balanceWatch {
			bal, err := a.api.Balance(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Printf("Wallet balance: ₦%.2f\n", bal.Balance)
			return nil
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		go a.monitor.Run(ctx)
		go func() {
			for online := range a.monitor.Subscribe() {
				if online {
					fmt.Fprintln(os.Stderr, "Back online.")
				} else {
					fmt.Fprintln(os.Stderr, "Connection lost; balance may be stale.")
				}
			}
		}()

		poller := wallet.NewPoller(a.api, a.manager.Token, a.cfg.PollInterval,
			func(b backend.Balance) {
				fmt.Printf("Wallet balance: ₦%.2f\n", b.Balance)
			},
			wallet.WithOnError(func(err error) {
				if backend.IsNetwork(err) {
					a.monitor.Kick()
					return
				}
				fmt.Fprintln(os.Stderr, "balance refresh failed:", err)
			}),
			wallet.WithLogger(a.log),
		)
		poller.Run(ctx)
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&balanceWatch, "watch", "w", false, "Keep refreshing until interrupted")
}
