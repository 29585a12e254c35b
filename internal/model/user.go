package model

// UserID uniquely identifies a user account on the backend
type UserID string

// User is the authenticated account operating the scorekeeper
type User struct {
	ID          UserID `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

// RegisteredUser extends User with credential data.
// Only the reference backend holds these.
type RegisteredUser struct {
	User         User
	PasswordHash string // bcrypt hash
}

// LoginResult is returned by the backend on successful authentication
type LoginResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
