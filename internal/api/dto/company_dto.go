package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CompanyRequest payload for creating or updating a company.
type CompanyRequest struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Industry string `json:"industry"`
	Status   string `json:"status"`
	Type     string `json:"type"`
}

// EmailConfigRequest payload for tenant SMTP settings. Password travels
// plaintext over TLS and is encrypted before storage; an empty value
// keeps the stored password.
type EmailConfigRequest struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// TestEmailRequest payload for transport verification.
type TestEmailRequest struct {
	Recipient string `json:"recipient"`
}

// EmailConfigResponse never carries the password in any form.
type EmailConfigResponse struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	From     string `json:"from"`
}

// NewEmailConfigResponse maps tenant SMTP settings.
func NewEmailConfigResponse(cfg *domain.EmailConfig) EmailConfigResponse {
	return EmailConfigResponse{
		Enabled:  cfg.Enabled,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		From:     cfg.From,
	}
}

// CompanyResponse is the public shape of a tenant.
type CompanyResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Domain    string               `json:"domain,omitempty"`
	Industry  string               `json:"industry,omitempty"`
	Status    domain.CompanyStatus `json:"status"`
	Type      domain.CompanyType   `json:"type"`
	CreatedBy string               `json:"created_by"`
	Email     EmailConfigResponse  `json:"email"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewCompanyResponse maps a domain company.
func NewCompanyResponse(company *domain.Company) CompanyResponse {
	return CompanyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Domain:    company.Domain,
		Industry:  company.Industry,
		Status:    company.Status,
		Type:      company.Type,
		CreatedBy: company.CreatedBy,
		Email:     NewEmailConfigResponse(&company.Email),
		CreatedAt: company.CreatedAt,
		UpdatedAt: company.UpdatedAt,
	}
}

// NewCompanyResponses maps a slice.
func NewCompanyResponses(companies []domain.Company) []CompanyResponse {
	result := make([]CompanyResponse, 0, len(companies))
	for i := range companies {
		result = append(result, NewCompanyResponse(&companies[i]))
	}
	return result
}
