package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
)

var historyPage int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your transaction history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := theApp
		if err := a.ensureRoute(cmd.Context(), guard.RouteProtected); err != nil {
			return err
		}
		token, err := a.requireToken()
		if err != nil {
			return err
		}

		page, err := a.api.History(cmd.Context(), token, historyPage)
		if err != nil {
			return err
		}
		if len(page.Transactions) == 0 {
			fmt.Println("No transactions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tTYPE\tAMOUNT\tSTATUS\tREFERENCE")
		for _, tx := range page.Transactions {
			fmt.Fprintf(w, "%s\t%s\t₦%.2f\t%s\t%s\n",
				tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.Amount, tx.Status, tx.Reference)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("Page %d of %d\n", page.Page, page.TotalPages)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyPage, "page", "p", 1, "Page number")
}
