package payment

import (
	"fmt"
	"regexp"
)

// ServiceType identifies the purchased service.
type ServiceType string

const (
	ServiceAirtime     ServiceType = "airtime"
	ServiceData        ServiceType = "data"
	ServiceTV          ServiceType = "tv"
	ServiceElectricity ServiceType = "electricity"
)

// ValidationError is a client-local input rejection. It blocks submission
// and never reaches the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	phonePattern     = regexp.MustCompile(`^0[789][01]\d{8}$`)
	meterPattern     = regexp.MustCompile(`^\d{10,13}$`)
	smartcardPattern = regexp.MustCompile(`^\d{10,12}$`)
)

// amountLimit is the per-service floor and ceiling in major units. A zero
// Max means no ceiling.
type amountLimit struct {
	Min float64
	Max float64
}

var amountLimits = map[ServiceType]amountLimit{
	ServiceAirtime:     {Min: 100, Max: 50_000},
	ServiceData:        {Min: 100, Max: 50_000},
	ServiceTV:          {Min: 500, Max: 200_000},
	ServiceElectricity: {Min: 500},
}

// ValidateAmount enforces the per-service amount thresholds.
func ValidateAmount(service ServiceType, amount float64) error {
	limit, ok := amountLimits[service]
	if !ok {
		return &ValidationError{Field: "serviceType", Message: fmt.Sprintf("unknown service type %q", service)}
	}
	if amount < limit.Min {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("Minimum amount is ₦%.0f", limit.Min)}
	}
	if limit.Max > 0 && amount > limit.Max {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("Maximum amount is ₦%.0f", limit.Max)}
	}
	return nil
}

// ServiceDetails is the service-specific slice of a purchase, one variant
// per service type. Validate runs before any network call; Payload is the
// wire shape the backend expects.
type ServiceDetails interface {
	Service() ServiceType
	Validate() error
	Payload() map[string]string
	// NeedsCustomerCheck reports whether a customer identity verification
	// (meter/smartcard lookup) must succeed before submission.
	NeedsCustomerCheck() bool
}

// AirtimeDetails buys phone credit.
type AirtimeDetails struct {
	Network string
	Phone   string
}

func (d AirtimeDetails) Service() ServiceType { return ServiceAirtime }

func (d AirtimeDetails) Validate() error {
	if d.Network == "" {
		return &ValidationError{Field: "network", Message: "Network is required"}
	}
	if !phonePattern.MatchString(d.Phone) {
		return &ValidationError{Field: "phoneNumber", Message: "Enter a valid 11-digit phone number"}
	}
	return nil
}

func (d AirtimeDetails) Payload() map[string]string {
	return map[string]string{"network": d.Network, "phoneNumber": d.Phone}
}

func (d AirtimeDetails) NeedsCustomerCheck() bool { return false }

// DataDetails buys a data plan.
type DataDetails struct {
	Network string
	Phone   string
	PlanID  string
}

func (d DataDetails) Service() ServiceType { return ServiceData }

func (d DataDetails) Validate() error {
	if d.Network == "" {
		return &ValidationError{Field: "network", Message: "Network is required"}
	}
	if !phonePattern.MatchString(d.Phone) {
		return &ValidationError{Field: "phoneNumber", Message: "Enter a valid 11-digit phone number"}
	}
	if d.PlanID == "" {
		return &ValidationError{Field: "plan", Message: "Select a data plan"}
	}
	return nil
}

func (d DataDetails) Payload() map[string]string {
	return map[string]string{"network": d.Network, "phoneNumber": d.Phone, "plan": d.PlanID}
}

func (d DataDetails) NeedsCustomerCheck() bool { return false }

// TVDetails renews a TV subscription.
type TVDetails struct {
	Provider  string
	Smartcard string
	Package   string
}

func (d TVDetails) Service() ServiceType { return ServiceTV }

// validateCustomerFields checks the fields the identity lookup depends on.
func (d TVDetails) validateCustomerFields() error {
	if d.Provider == "" {
		return &ValidationError{Field: "provider", Message: "Provider is required"}
	}
	if !smartcardPattern.MatchString(d.Smartcard) {
		return &ValidationError{Field: "smartCardNumber", Message: "Enter a valid smartcard number"}
	}
	return nil
}

func (d TVDetails) Validate() error {
	if err := d.validateCustomerFields(); err != nil {
		return err
	}
	if d.Package == "" {
		return &ValidationError{Field: "package", Message: "Select a package"}
	}
	return nil
}

func (d TVDetails) Payload() map[string]string {
	return map[string]string{"provider": d.Provider, "smartCardNumber": d.Smartcard, "package": d.Package}
}

func (d TVDetails) NeedsCustomerCheck() bool { return true }

// ElectricityDetails buys a power token or pays a postpaid bill.
type ElectricityDetails struct {
	Provider  string
	Meter     string
	MeterType string // prepaid or postpaid
	Phone     string // token delivery
}

func (d ElectricityDetails) Service() ServiceType { return ServiceElectricity }

// validateCustomerFields checks the fields the identity lookup depends on.
func (d ElectricityDetails) validateCustomerFields() error {
	if d.Provider == "" {
		return &ValidationError{Field: "provider", Message: "Provider is required"}
	}
	if !meterPattern.MatchString(d.Meter) {
		return &ValidationError{Field: "meterNumber", Message: "Enter a valid meter number"}
	}
	if d.MeterType != "prepaid" && d.MeterType != "postpaid" {
		return &ValidationError{Field: "meterType", Message: "Meter type must be prepaid or postpaid"}
	}
	return nil
}

func (d ElectricityDetails) Validate() error {
	if err := d.validateCustomerFields(); err != nil {
		return err
	}
	if d.Phone != "" && !phonePattern.MatchString(d.Phone) {
		return &ValidationError{Field: "phoneNumber", Message: "Enter a valid 11-digit phone number"}
	}
	return nil
}

func (d ElectricityDetails) Payload() map[string]string {
	p := map[string]string{"provider": d.Provider, "meterNumber": d.Meter, "meterType": d.MeterType}
	if d.Phone != "" {
		p["phoneNumber"] = d.Phone
	}
	return p
}

func (d ElectricityDetails) NeedsCustomerCheck() bool { return true }
