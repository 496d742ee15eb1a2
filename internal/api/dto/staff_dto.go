package dto

// StaffCreateRequest payload.
type StaffCreateRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Capabilities []string `json:"capabilities"`
}

// StaffUpdateRequest payload.
type StaffUpdateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StaffStatusRequest payload.
type StaffStatusRequest struct {
	Status string `json:"status"`
}

// StaffResponse payload.
type StaffResponse struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Capabilities []string `json:"capabilities"`
	Status       string   `json:"status"`
	Online       bool     `json:"online"`
}
