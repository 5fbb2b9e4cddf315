package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Pery99/billpay/backend"
	"github.com/Pery99/billpay/config"
	"github.com/Pery99/billpay/guard"
	"github.com/Pery99/billpay/netmon"
	"github.com/Pery99/billpay/payment"
	"github.com/Pery99/billpay/session"
)

var (
	flagAPIURL   string
	flagStateDir string
	flagVerbose  bool
)

// app holds the wired client components for one command invocation.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *session.BoltStore
	manager *session.Manager
	api     *backend.Client
	monitor *netmon.Monitor
}

var theApp *app

var rootCmd = &cobra.Command{
	Use:   "billpay",
	Short: "Billpay is a bill-payment client",
	Long: `Buy airtime, data, TV and electricity top-ups from the terminal.
Card payments hand off to the provider's hosted checkout in your browser.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		theApp = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if theApp != nil && theApp.store != nil {
			theApp.store.Close()
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPIURL, "api-url", "", "backend base URL (overrides BILLPAY_API_URL)")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", "", "directory for session state (overrides BILLPAY_STATE_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagAPIURL != "" {
		cfg.APIBaseURL = flagAPIURL
	}
	if flagStateDir != "" {
		cfg.StateDir = flagStateDir
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	level := zerolog.WarnLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	store, err := session.NewBoltStoreFromFiles(cfg.SessionDBPath(), cfg.KeyfilePath())
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	api := backend.NewClient(cfg.APIBaseURL,
		backend.WithTimeout(cfg.RequestTimeout),
		backend.WithLogger(log),
	)
	manager := session.NewManager(store, api, session.WithLogger(log))
	monitor := netmon.New(api.Ping, cfg.PollInterval, log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		manager: manager,
		api:     api,
		monitor: monitor,
	}, nil
}

// checkoutWidget builds the hosted-checkout widget for direct payments.
func (a *app) checkoutWidget() payment.Widget {
	return &payment.HostedCheckout{
		PublicKey:   a.cfg.CheckoutPublicKey,
		CheckoutURL: a.cfg.CheckoutURL,
		Log:         a.log,
	}
}

// ensureRoute evaluates the route guard for this command, resolving a due
// profile fetch along the way. It returns an error when the command must
// not run.
func (a *app) ensureRoute(ctx context.Context, route guard.RouteClass) error {
	online := a.monitor.Retry(ctx)
	for {
		d := guard.Decide(a.manager.Snapshot(), online, route)
		if d.OfflineNotice {
			fmt.Fprintln(os.Stderr, "You appear to be offline. Some data may be stale; retry when connected.")
		}

		switch d.Action {
		case guard.Allow:
			return nil
		case guard.RedirectLogin:
			return errors.New("you are not logged in (run: billpay login)")
		case guard.RedirectHome:
			return errors.New("this command requires the admin role")
		case guard.ShowError:
			if d.Reason != "" {
				return fmt.Errorf("session error: %s (run: billpay logout, then log in again)", d.Reason)
			}
			return errors.New("session error (run: billpay logout, then log in again)")
		case guard.ShowLoading:
			if err := a.manager.FetchProfile(ctx); err != nil {
				if errors.Is(err, backend.ErrUnauthorized) {
					// Expected consequence of expiry; no noisy notification.
					return errors.New("your session has expired (run: billpay login)")
				}
				if backend.IsNetwork(err) {
					online = false
					continue
				}
				return err
			}
			continue
		default:
			return fmt.Errorf("unhandled guard action %v", d.Action)
		}
	}
}

// requireToken returns the bearer token or the standard not-logged-in error.
func (a *app) requireToken() (string, error) {
	tok, ok := a.manager.Token()
	if !ok {
		return "", errors.New("you are not logged in (run: billpay login)")
	}
	return tok, nil
}

// payerEmail returns the email used for checkout handoffs.
func (a *app) payerEmail() (string, error) {
	snap := a.manager.Snapshot()
	if snap.User == nil || snap.User.Email == "" {
		return "", errors.New("profile not loaded; run: billpay whoami")
	}
	return snap.User.Email, nil
}
