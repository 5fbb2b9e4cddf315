package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/guard"
	"github.com/Pery99/billpay/payment"
)

var (
	payAmount float64
	payMethod string

	payNetwork string
	payPhone   string
	payPlan    string

	payProvider  string
	paySmartcard string
	payPackage   string

	payMeter     string
	payMeterType string
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay for a service",
	Long: `Pay for airtime, data, TV or electricity.

Wallet payments debit your wallet balance directly. Direct payments open
the provider's hosted checkout page in your browser and wait for the
result on a local callback.`,
}

var payAirtimeCmd = &cobra.Command{
	Use:   "airtime",
	Short: "Buy airtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayment(cmd, payment.AirtimeDetails{
			Network: payNetwork,
			Phone:   payPhone,
		})
	},
}

var payDataCmd = &cobra.Command{
	Use:   "data",
	Short: "Buy a data bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayment(cmd, payment.DataDetails{
			Network: payNetwork,
			Phone:   payPhone,
			PlanID:  payPlan,
		})
	},
}

var payTVCmd = &cobra.Command{
	Use:   "tv",
	Short: "Pay a TV subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayment(cmd, payment.TVDetails{
			Provider:  payProvider,
			Smartcard: paySmartcard,
			Package:   payPackage,
		})
	},
}

var payElectricityCmd = &cobra.Command{
	Use:   "electricity",
	Short: "Buy an electricity token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPayment(cmd, payment.ElectricityDetails{
			Provider:  payProvider,
			Meter:     payMeter,
			MeterType: payMeterType,
			Phone:     payPhone,
		})
	},
}

func runPayment(cmd *cobra.Command, details payment.ServiceDetails) error {
	a := theApp
	ctx := cmd.Context()
	if err := a.ensureRoute(ctx, guard.RouteProtected); err != nil {
		return err
	}
	token, err := a.requireToken()
	if err != nil {
		return err
	}

	method, err := parseMethod(payMethod)
	if err != nil {
		return err
	}

	var email string
	if method == payment.MethodDirect {
		email, err = a.payerEmail()
		if err != nil {
			return err
		}
	}

	flow := payment.NewFlow(a.api, a.checkoutWidget(), a.log)

	if method == payment.MethodDirect {
		fmt.Println("Opening checkout in your browser...")
	}

	receipt, err := flow.Pay(ctx, token, email, payment.Request{
		Amount:  payAmount,
		Details: details,
		Method:  method,
	})
	if err != nil {
		if errors.Is(err, payment.ErrCustomerInvalid) {
			return errors.New("customer verification failed; check the number and provider")
		}
		return err
	}
	printReceipt(receipt)
	return nil
}

func parseMethod(s string) (payment.Method, error) {
	switch s {
	case "wallet":
		return payment.MethodWallet, nil
	case "direct", "card":
		return payment.MethodDirect, nil
	default:
		return "", fmt.Errorf("unknown payment method %q (use wallet or direct)", s)
	}
}

func printReceipt(r *payment.Receipt) {
	if r.CustomerName != "" {
		fmt.Printf("Customer: %s\n", r.CustomerName)
	}
	switch r.Status {
	case payment.StatusSucceeded:
		fmt.Println("Payment successful.")
	case payment.StatusCancelled:
		fmt.Println("Payment cancelled.")
	default:
		fmt.Println("Payment failed.")
	}
	if r.Message != "" {
		fmt.Println(r.Message)
	}
	if r.Reference != "" {
		fmt.Printf("Reference: %s\n", r.Reference)
	}
}

func init() {
	rootCmd.AddCommand(payCmd)
	payCmd.AddCommand(payAirtimeCmd, payDataCmd, payTVCmd, payElectricityCmd)

	payCmd.PersistentFlags().Float64VarP(&payAmount, "amount", "a", 0, "Amount in naira")
	payCmd.PersistentFlags().StringVarP(&payMethod, "method", "m", "wallet", "Payment method: wallet or direct")

	payAirtimeCmd.Flags().StringVar(&payNetwork, "network", "", "Mobile network (mtn, glo, airtel, 9mobile)")
	payAirtimeCmd.Flags().StringVar(&payPhone, "phone", "", "Recipient phone number")

	payDataCmd.Flags().StringVar(&payNetwork, "network", "", "Mobile network (mtn, glo, airtel, 9mobile)")
	payDataCmd.Flags().StringVar(&payPhone, "phone", "", "Recipient phone number")
	payDataCmd.Flags().StringVar(&payPlan, "plan", "", "Data plan identifier")

	payTVCmd.Flags().StringVar(&payProvider, "provider", "", "TV provider (dstv, gotv, startimes)")
	payTVCmd.Flags().StringVar(&paySmartcard, "smartcard", "", "Smartcard number")
	payTVCmd.Flags().StringVar(&payPackage, "package", "", "Subscription package")

	payElectricityCmd.Flags().StringVar(&payProvider, "provider", "", "Electricity provider")
	payElectricityCmd.Flags().StringVar(&payMeter, "meter", "", "Meter number")
	payElectricityCmd.Flags().StringVar(&payMeterType, "meter-type", "prepaid", "Meter type: prepaid or postpaid")
	payElectricityCmd.Flags().StringVar(&payPhone, "phone", "", "Phone number for token delivery")
}
