package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123","user":{"id":"u1","fullname":"Ada A","email":"a@b.com","role":"user"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.Token)
	assert.Equal(t, "Ada A", resp.User.FullName)
	assert.False(t, resp.User.IsAdmin())
}

func TestLoginRejectedSurfacesBackendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"Invalid email or password"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Login(context.Background(), "a@b.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.False(t, IsNetwork(err))
	assert.True(t, IsBusiness(err))
}

func TestMeUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Me(context.Background(), "expired-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, IsNetwork(err))
}

func TestMeSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"u1","fullname":"Ada A","email":"a@b.com","role":"admin"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	user, err := c.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestNetworkFailureClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(srv.URL, WithTimeout(500*time.Millisecond))
	_, err := c.Login(context.Background(), "a@b.com", "secret123")
	require.Error(t, err)

	var ce *ConnectionError
	assert.ErrorAs(t, err, &ce)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsBusiness(err))
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestInitializeDirectPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/initialize-direct-payment", r.URL.Path)
		w.Write([]byte(`{"data":{"reference":"ref-42"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ref, err := c.InitializeDirectPayment(context.Background(), "tok", InitializePaymentRequest{
		Amount: 500,
		Type:   "airtime",
		Email:  "a@b.com",
		ServiceDetails: map[string]string{
			"network":     "mtn",
			"phoneNumber": "08031234567",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ref-42", ref.Reference)
}

func TestInitializeDirectPaymentMissingReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.InitializeDirectPayment(context.Background(), "tok", InitializePaymentRequest{Amount: 100, Type: "airtime"})
	assert.True(t, IsBusiness(err))
}

func TestVerifyPaymentQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/verify-payment/ref-42", r.URL.Path)
		require.Equal(t, "tv", r.URL.Query().Get("type"))
		w.Write([]byte(`{"status":"success"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.VerifyPayment(context.Background(), "tok", "ref-42", "tv")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
}

func TestPurchaseStatusCasing(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
	}{
		{"lowercase", `{"status":"success"}`, true},
		{"uppercase key", `{"Status":"successful"}`, true},
		{"failed", `{"status":"failed","message":"Insufficient balance"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/transactions/airtime", r.URL.Path)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			res, err := c.Purchase(context.Background(), "tok", "airtime", PurchaseRequest{
				Amount: 200,
				Fields: map[string]string{"network": "glo", "phoneNumber": "08031234567"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.ok, res.Succeeded())
		})
	}
}

func TestVerifyElectricityInvalidCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions/verify-electricity", r.URL.Path)
		require.Equal(t, "ikeja", r.URL.Query().Get("provider"))
		require.Equal(t, "04123456789", r.URL.Query().Get("meterNumber"))
		w.Write([]byte(`{"name":"","invalid":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	cust, err := c.VerifyElectricity(context.Background(), "tok", "ikeja", "04123456789", "prepaid")
	require.NoError(t, err)
	assert.True(t, cust.Invalid)
}

func TestBalanceAndHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transactions/balance":
			w.Write([]byte(`{"balance":1520.50}`))
		case "/transactions/history":
			require.Equal(t, "2", r.URL.Query().Get("page"))
			w.Write([]byte(`{"data":[{"reference":"ref-1","type":"data","amount":1000,"status":"success","createdAt":"2026-08-01T10:00:00Z"}],"page":2,"totalPages":5}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	bal, err := c.Balance(context.Background(), "tok")
	require.NoError(t, err)
	assert.InDelta(t, 1520.50, bal.Balance, 0.001)

	page, err := c.History(context.Background(), "tok", 2)
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "ref-1", page.Transactions[0].Reference)
	assert.Equal(t, 5, page.TotalPages)
}

func TestGetRetriesTransientServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"balance":10}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	bal, err := c.Balance(context.Background(), "tok")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, bal.Balance, 0.001)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestPingTreatsAnyResponseAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestLogoutIgnoresBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	assert.NoError(t, c.Logout(context.Background(), "tok"))
}

func TestErrorBodyFallsBackToErrorKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"Email already registered"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Register(context.Background(), "Ada A", "a@b.com", "secret123")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Email already registered", apiErr.Message)
}
