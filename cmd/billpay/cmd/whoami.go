package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := theApp
		if err := a.ensureRoute(cmd.Context(), guard.RouteProtected); err != nil {
			return err
		}

		snap := a.manager.Snapshot()
		if snap.User == nil {
			// Offline with only a rehydrated token: the profile is not
			// available until the backend is reachable.
			fmt.Println("Logged in (profile unavailable offline).")
			if snap.CachedRole != "" {
				fmt.Printf("Cached role: %s\n", snap.CachedRole)
			}
			return nil
		}

		fmt.Printf("Name:  %s\n", snap.User.FullName)
		fmt.Printf("Email: %s\n", snap.User.Email)
		fmt.Printf("Role:  %s\n", snap.User.Role)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
