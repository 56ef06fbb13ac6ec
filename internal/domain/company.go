package domain

import "time"

// CompanyStatus enumerates tenant lifecycle states.
type CompanyStatus string

const (
	CompanyStatusActive   CompanyStatus = "active"
	CompanyStatusInactive CompanyStatus = "inactive"
)

// CompanyType distinguishes a manager's employer company from the client
// companies that manager created.
type CompanyType string

const (
	CompanyTypeMain   CompanyType = "main-company"
	CompanyTypeClient CompanyType = "client-company"
)

// EmailConfig holds a tenant's SMTP settings. Password is stored encrypted
// (iv_hex:ciphertext_hex, see pkg/crypto).
type EmailConfig struct {
	Enabled           bool
	Host              string
	Port              int
	Username          string
	EncryptedPassword string
	From              string
}

// Company is the tenant record.
type Company struct {
	ID        string
	Name      string
	Domain    string
	Industry  string
	Status    CompanyStatus
	Type      CompanyType
	CreatedBy string
	Email     EmailConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}
