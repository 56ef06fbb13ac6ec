package dto

// UserCreateRequest payload for staff-side account creation.
type UserCreateRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	CompanyID   *string  `json:"company_id"`
	Permissions []string `json:"permissions"`
}

// UserUpdateRequest payload for partial account updates; absent fields
// keep their stored values.
type UserUpdateRequest struct {
	Name        *string  `json:"name"`
	Email       *string  `json:"email"`
	Password    *string  `json:"password"`
	Role        *string  `json:"role"`
	CompanyID   *string  `json:"company_id"`
	Permissions []string `json:"permissions"`
	IsActive    *bool    `json:"is_active"`
}
