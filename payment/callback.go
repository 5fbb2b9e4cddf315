package payment

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const callbackPage = `<!doctype html>
<html><body>
<p>Payment window closed. You can return to the terminal.</p>
</body></html>`

// HostedCheckout hands the capture step to the provider's hosted checkout
// page: it opens the page in the payer's browser and receives the result on
// a loopback callback endpoint.
type HostedCheckout struct {
	// PublicKey identifies this merchant to the provider.
	PublicKey string
	// CheckoutURL is the provider's hosted checkout page.
	CheckoutURL string
	// ListenAddr is the loopback listen address; an empty value picks an
	// ephemeral port on 127.0.0.1.
	ListenAddr string
	// OpenBrowser launches the payer's browser; defaults to the platform
	// opener.
	OpenBrowser func(url string) error
	Log         zerolog.Logger
}

var _ Widget = (*HostedCheckout)(nil)

// Open serves the callback endpoint, points the browser at the checkout
// page, and blocks until the provider redirects back or ctx is cancelled.
// Context cancellation resolves as a payer cancellation, not an error.
func (h *HostedCheckout) Open(ctx context.Context, co Checkout) (CaptureResult, error) {
	addr := h.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return CaptureResult{}, fmt.Errorf("starting callback listener: %w", err)
	}

	// The state nonce ties the redirect back to this checkout; anything
	// else hitting the port is ignored.
	state := uuid.NewString()
	results := make(chan CaptureResult, 1)

	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != state {
			http.NotFound(w, req)
			return
		}
		res := CaptureResult{Reference: q.Get("reference")}
		if res.Reference == "" {
			res.Reference = co.Reference
		}
		if st := q.Get("status"); st != "success" {
			res.Cancelled = true
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, callbackPage)
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	callbackURL := fmt.Sprintf("http://%s/callback", ln.Addr().String())
	q := url.Values{}
	q.Set("key", h.PublicKey)
	q.Set("email", co.Email)
	q.Set("amount", fmt.Sprintf("%d", co.AmountMinor))
	q.Set("reference", co.Reference)
	q.Set("callback", callbackURL)
	q.Set("state", state)
	checkoutURL := h.CheckoutURL + "?" + q.Encode()

	open := h.OpenBrowser
	if open == nil {
		open = openBrowser
	}
	h.Log.Info().Str("reference", co.Reference).Msg("opening hosted checkout")
	if err := open(checkoutURL); err != nil {
		return CaptureResult{}, fmt.Errorf("opening checkout page: %w", err)
	}

	select {
	case res := <-results:
		return res, nil
	case <-ctx.Done():
		h.Log.Info().Str("reference", co.Reference).Msg("checkout abandoned")
		return CaptureResult{Reference: co.Reference, Cancelled: true}, nil
	}
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}
