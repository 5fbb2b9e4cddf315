package backend

import (
	"encoding/json"
	"strings"
	"time"
)

// User is the authenticated profile returned by the backend.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the profile carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == "admin"
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register. RefreshToken is empty
// when the backend does not issue one.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// InitializePaymentRequest asks the backend to create a pending transaction
// and a payment reference for a card payment.
type InitializePaymentRequest struct {
	Amount         float64           `json:"amount"`
	Type           string            `json:"type"`
	Email          string            `json:"email"`
	ServiceDetails map[string]string `json:"serviceDetails"`
}

// PaymentReference is the payload of a successful initialize call.
type PaymentReference struct {
	Reference string `json:"reference"`
}

type initializePaymentResponse struct {
	Data PaymentReference `json:"data"`
}

// VerifyPaymentResult is the backend's verdict on a captured payment.
type VerifyPaymentResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Succeeded reports whether verification finalized the transaction.
func (v VerifyPaymentResult) Succeeded() bool {
	return strings.EqualFold(v.Status, "success")
}

// PurchaseRequest is the body of the wallet purchase endpoints. Fields
// holds the service-specific details flattened into the request body.
type PurchaseRequest struct {
	Amount         float64
	Fields         map[string]string
	IdempotencyKey string
}

// MarshalJSON flattens Fields next to the fixed keys, matching the shape
// the backend expects.
func (r PurchaseRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		body[k] = v
	}
	body["amount"] = r.Amount
	if r.IdempotencyKey != "" {
		body["idempotencyKey"] = r.IdempotencyKey
	}
	return json.Marshal(body)
}

// PurchaseResult is the outcome of a wallet purchase. The backend is
// inconsistent about the casing of the status key, so both are accepted.
type PurchaseResult struct {
	Status  string
	Message string
}

func (p *PurchaseResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status      string `json:"status"`
		StatusUpper string `json:"Status"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Status = raw.Status
	if p.Status == "" {
		p.Status = raw.StatusUpper
	}
	p.Message = raw.Message
	return nil
}

// Succeeded reports whether the wallet purchase was finalized.
func (p PurchaseResult) Succeeded() bool {
	return strings.EqualFold(p.Status, "success") || strings.EqualFold(p.Status, "successful")
}

// Customer is the result of a meter or smartcard identity check.
type Customer struct {
	Name    string `json:"name"`
	Invalid bool   `json:"invalid"`
}

// Balance is the user's wallet balance in major currency units.
type Balance struct {
	Balance float64 `json:"balance"`
}

// Transaction is one history entry.
type Transaction struct {
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryPage is one page of the transaction history.
type HistoryPage struct {
	Transactions []Transaction `json:"data"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
}
