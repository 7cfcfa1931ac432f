package models

import "time"

// Roles carried in the JWT role claim.
const (
	RoleMessenger = "messenger"
	RoleAdmin     = "admin"
)

type Messenger struct {
	ID          string     `json:"id" example:"c1f7f2f0-7f52-4f6e-9f2a-1b8a1d2e3f40"` // Messenger ID
	Email       string     `json:"email" example:"messenger@example.com"`             // Messenger email
	FirstName   string     `json:"firstName" example:"Moshe"`                         // First name
	LastName    string     `json:"lastName" example:"Cohen"`                          // Last name
	PhoneNumber string     `json:"phoneNumber" example:"+972501234567"`               // Phone number
	Role        string     `json:"role" example:"messenger"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
