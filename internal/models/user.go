package models

import "github.com/google/uuid"

// User represents an authenticated customer.
type User struct {
	BaseModel
	Email        string       `gorm:"uniqueIndex" json:"email"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	PasswordHash string       `json:"-"`
	Profile      *UserProfile `json:"profile,omitempty"`
	Addresses    []Address    `json:"addresses,omitempty"`
	Orders       []Order      `json:"orders,omitempty"`
}

// UserProfile holds per-user payment gateway state. It is created lazily on
// the first checkout.
type UserProfile struct {
	BaseModel
	UserID             uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	GatewayCustomerID  string    `json:"-"`
	OneClickPurchasing bool      `json:"one_click_purchasing"`
}
