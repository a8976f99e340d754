package models

import "time"

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`

	// password recovery state; OTPCode and OTPExpiresAt are set together
	OTPCode         *string    `json:"-"`
	OTPExpiresAt    *time.Time `json:"-"`
	ResetAuthorized bool       `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPendingOTP reports whether a reset code is waiting for verification.
func (u User) HasPendingOTP() bool {
	return u.OTPCode != nil && u.OTPExpiresAt != nil
}
