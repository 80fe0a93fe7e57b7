package sharefile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultEmailDomain is the suffix GetEmployee appends to bare user ids.
const DefaultEmailDomain = "ca.com"

// Config holds the connection parameters of a Client. It is copied at
// construction and never mutated afterwards.
type Config struct {
	Hostname     string // e.g. "example.sharefile.com"
	ClientID     string
	ClientSecret string
	Username     string
	Password     string //nolint:gosec // credential field, never logged
	Company      string
	EmailDomain  string // without the leading "@"; DefaultEmailDomain when empty
	UserAgent    string // DefaultUserAgent when empty
}

// emailDomain returns the configured domain with any leading "@" removed.
func (c Config) emailDomain() string {
	d := strings.TrimPrefix(strings.TrimSpace(c.EmailDomain), "@")
	if d == "" {
		return DefaultEmailDomain
	}

	return d
}

// Token is the OAuth credential used by REST calls. Subdomain selects the
// REST host ({subdomain}.sf-api.com).
type Token struct {
	AccessToken     string
	TokenType       string
	RefreshToken    string
	Expiry          time.Time
	Subdomain       string
	APIControlPlane string
}

// Envelope is the {error, value} wrapper returned by every legacy RPC call.
// Callers must check Error before trusting Value.
type Envelope struct {
	Error        bool            `json:"error"`
	Value        json.RawMessage `json:"value,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	ErrorCode    int             `json:"errorCode,omitempty"`
}

// Decode unmarshals Value into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Value) == 0 {
		return fmt.Errorf("sharefile: envelope has no value")
	}

	if err := json.Unmarshal(e.Value, v); err != nil {
		return fmt.Errorf("sharefile: decoding envelope value: %w", err)
	}

	return nil
}

// Err returns an *EnvelopeError when the envelope reports a failure, nil otherwise.
func (e *Envelope) Err(endpoint, op string) error {
	if !e.Error {
		return nil
	}

	return &EnvelopeError{
		Endpoint: endpoint,
		Op:       op,
		Message:  e.ErrorMessage,
		Code:     e.ErrorCode,
	}
}

// successEnvelope is returned for operations that succeed without a round trip.
func successEnvelope() *Envelope {
	return &Envelope{Error: false}
}

// User is the legacy users/* record.
type User struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryemail"`
	Email        string `json:"email"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Company      string `json:"company"`
}

// Folder is one entry of a legacy folder/list response.
type Folder struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentid"`
	DisplayName string `json:"displayname"`
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	CreatedBy   string `json:"creatorname"`
}

// Contact is an employee as returned by the REST Accounts/Employees resource.
type Contact struct {
	ID          string `json:"Id"`
	Email       string `json:"Email"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	FullName    string `json:"FullName"`
	Company     string `json:"Company"`
	IsConfirmed bool   `json:"IsConfirmed"`
}

// EmployeeList is the REST collection returned by ListEmployees.
type EmployeeList struct {
	Count int       `json:"odata.count"` //nolint:tagliatelle // OData annotation key
	Value []Contact `json:"value"`
}
