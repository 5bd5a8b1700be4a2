package model

// User is the authenticated caller resolved from a session token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
