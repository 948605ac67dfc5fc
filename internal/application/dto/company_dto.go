package dto

import "time"

// CreateCompanyRequest entrada para dar de alta una empresa.
type CreateCompanyRequest struct {
	ID   string `json:"id,omitempty"` // opcional; vacío = uuid nuevo
	Name string `json:"name"`
}

// CompanyResponse salida de una empresa.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
