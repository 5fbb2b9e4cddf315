package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
)

var (
	loginEmail    string
	loginPassword string
	loginRemember bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := theApp
		if err := a.ensureRoute(cmd.Context(), guard.RoutePublic); err != nil {
			return err
		}

		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := promptIfEmpty(loginPassword, "Password: ")
		if err != nil {
			return err
		}

		if err := a.manager.Login(cmd.Context(), email, password, loginRemember); err != nil {
			return err
		}

		snap := a.manager.Snapshot()
		if snap.User != nil {
			fmt.Printf("Logged in as %s (%s)\n", snap.User.FullName, snap.User.Email)
		} else {
			fmt.Println("Logged in.")
		}
		if loginRemember {
			fmt.Println("Session will be remembered on this machine for 30 days.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted if omitted)")
	loginCmd.Flags().BoolVar(&loginRemember, "remember", false, "Keep the session for 30 days instead of 1 hour")
}

// promptIfEmpty returns value, or reads one line from stdin after printing
// the prompt.
func promptIfEmpty(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no input provided")
	}
	return line, nil
}
