package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrInvalidProfile is returned when a caller hands the engine a profile
// that violates the input contract (e.g. no contact id).
var ErrInvalidProfile = eris.New("invalid lead profile")

// LeadProfile is the raw lead record scored by the engine. Everything except
// ContactID is optional; absent fields contribute nothing to the score.
type LeadProfile struct {
	// Identity
	ContactID string `json:"contact_id" yaml:"contact_id"`
	FirstName string `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`

	// Credit
	CreditScore      *int           `json:"credit_score,omitempty" yaml:"credit_score,omitempty"`
	NegativeItems    map[string]int `json:"negative_items,omitempty" yaml:"negative_items,omitempty"`
	IdentityTheft    bool           `json:"identity_theft,omitempty" yaml:"identity_theft,omitempty"`
	RecentBankruptcy bool           `json:"recent_bankruptcy,omitempty" yaml:"recent_bankruptcy,omitempty"`

	// Financial
	MonthlyIncome     *float64 `json:"monthly_income,omitempty" yaml:"monthly_income,omitempty"`
	MonthlyDebt       *float64 `json:"monthly_debt,omitempty" yaml:"monthly_debt,omitempty"`
	CreditUtilization *float64 `json:"credit_utilization,omitempty" yaml:"credit_utilization,omitempty"` // percent, may exceed 100
	EmploymentStatus  string   `json:"employment_status,omitempty" yaml:"employment_status,omitempty"`
	HomeOwnership     string   `json:"home_ownership,omitempty" yaml:"home_ownership,omitempty"`

	// Behavioral
	LeadSource           string   `json:"lead_source,omitempty" yaml:"lead_source,omitempty"`
	FormCompleteness     *float64 `json:"form_completeness,omitempty" yaml:"form_completeness,omitempty"` // 0-100
	EmailVerified        bool     `json:"email_verified,omitempty" yaml:"email_verified,omitempty"`
	PhoneVerified        bool     `json:"phone_verified,omitempty" yaml:"phone_verified,omitempty"`
	DocumentsUploaded    int      `json:"documents_uploaded,omitempty" yaml:"documents_uploaded,omitempty"`
	IsPreviousClient     bool     `json:"is_previous_client,omitempty" yaml:"is_previous_client,omitempty"`
	ResponseTime         *float64 `json:"response_time,omitempty" yaml:"response_time,omitempty"` // minutes
	AppointmentScheduled bool     `json:"appointment_scheduled,omitempty" yaml:"appointment_scheduled,omitempty"`

	// Intent
	PrimaryGoal  string     `json:"primary_goal,omitempty" yaml:"primary_goal,omitempty"`
	Timeline     string     `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	Notes        string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Comments     string     `json:"comments,omitempty" yaml:"comments,omitempty"`
	HasDeadline  bool       `json:"has_deadline,omitempty" yaml:"has_deadline,omitempty"`
	DeadlineDate *time.Time `json:"deadline_date,omitempty" yaml:"deadline_date,omitempty"`
}

// Validate checks the input contract. Only identity is required.
func (p *LeadProfile) Validate() error {
	if p == nil {
		return eris.Wrap(ErrInvalidProfile, "profile is nil")
	}
	if strings.TrimSpace(p.ContactID) == "" {
		return eris.Wrap(ErrInvalidProfile, "contact_id is required")
	}
	return nil
}

// Income returns the monthly income, or 0 when absent.
func (p *LeadProfile) Income() float64 {
	if p.MonthlyIncome == nil {
		return 0
	}
	return *p.MonthlyIncome
}

// Summary is the reduced view of a profile sent to the enrichment service.
// It deliberately omits contact details.
type Summary struct {
	CreditScore   *int           `json:"credit_score,omitempty"`
	MonthlyIncome *float64       `json:"monthly_income,omitempty"`
	NegativeItems map[string]int `json:"negative_items,omitempty"`
	PrimaryGoal   string         `json:"primary_goal,omitempty"`
	Timeline      string         `json:"timeline,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	LeadSource    string         `json:"lead_source,omitempty"`
}

// Summarize builds the enrichment summary for a profile.
func (p *LeadProfile) Summarize() Summary {
	return Summary{
		CreditScore:   p.CreditScore,
		MonthlyIncome: p.MonthlyIncome,
		NegativeItems: p.NegativeItems,
		PrimaryGoal:   p.PrimaryGoal,
		Timeline:      p.Timeline,
		Notes:         p.Notes,
		LeadSource:    p.LeadSource,
	}
}
