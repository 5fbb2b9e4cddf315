package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
)

var (
	registerName     string
	registerEmail    string
	registerPassword string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := theApp
		if err := a.ensureRoute(cmd.Context(), guard.RoutePublic); err != nil {
			return err
		}

		name, err := promptIfEmpty(registerName, "Full name: ")
		if err != nil {
			return err
		}
		email, err := promptIfEmpty(registerEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := promptIfEmpty(registerPassword, "Password: ")
		if err != nil {
			return err
		}

		if err := a.manager.Register(cmd.Context(), name, email, password); err != nil {
			return err
		}

		snap := a.manager.Snapshot()
		if snap.User != nil {
			fmt.Printf("Account created. Logged in as %s (%s)\n", snap.User.FullName, snap.User.Email)
		} else {
			fmt.Println("Account created.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVarP(&registerName, "name", "n", "", "Full name")
	registerCmd.Flags().StringVarP(&registerEmail, "email", "e", "", "Account email")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Account password (prompted if omitted)")
}
