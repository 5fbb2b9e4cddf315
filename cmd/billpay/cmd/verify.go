package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
	"github.com/Pery99/billpay/payment"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Look up the customer behind a meter or smartcard",
}

var verifyMeterCmd = &cobra.Command{
	Use:   "meter",
	Short: "Verify an electricity meter number",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, payment.ElectricityDetails{
			Provider:  payProvider,
			Meter:     payMeter,
			MeterType: payMeterType,
		})
	},
}

var verifySmartcardCmd = &cobra.Command{
	Use:   "smartcard",
	Short: "Verify a TV smartcard number",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, payment.TVDetails{
			Provider:  payProvider,
			Smartcard: paySmartcard,
		})
	},
}

func runVerify(cmd *cobra.Command, details payment.ServiceDetails) error {
	a := theApp
	if err := a.ensureRoute(cmd.Context(), guard.RouteProtected); err != nil {
		return err
	}
	token, err := a.requireToken()
	if err != nil {
		return err
	}

	flow := payment.NewFlow(a.api, nil, a.log)
	customer, err := flow.VerifyCustomer(cmd.Context(), token, details)
	if err != nil {
		if errors.Is(err, payment.ErrCustomerInvalid) {
			return errors.New("no customer found; check the number and provider")
		}
		return err
	}
	fmt.Printf("Customer: %s\n", customer.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifyMeterCmd, verifySmartcardCmd)

	verifyMeterCmd.Flags().StringVar(&payProvider, "provider", "", "Electricity provider")
	verifyMeterCmd.Flags().StringVar(&payMeter, "meter", "", "Meter number")
	verifyMeterCmd.Flags().StringVar(&payMeterType, "meter-type", "prepaid", "Meter type: prepaid or postpaid")

	verifySmartcardCmd.Flags().StringVar(&payProvider, "provider", "", "TV provider")
	verifySmartcardCmd.Flags().StringVar(&paySmartcard, "smartcard", "", "Smartcard number")
}
