package accounts

import "time"

// Credentials identify an account at login.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// NewUser is the input of CreateUser. Nil optional fields are sent as null
// and stripped before the request leaves the process.
type NewUser struct {
	Username   string   `json:"username" validate:"required"`
	Password   string   `json:"password" validate:"required"`
	ScreenName *string  `json:"screenName"`
	GPA        *float64 `json:"gpa" validate:"omitempty,gte=0,lte=4"`
}

// ActivationToken is the one-time pair mailed after registration.
type ActivationToken struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

// ResetToken is the one-time pair mailed after a password reset request.
// It is a distinct type from ActivationToken: the server draws the two from
// separate namespaces and they are never interchangeable.
type ResetToken struct {
	UID   string `json:"uid" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// CreatedUser is the body of a successful POST /users/create/.
type CreatedUser struct {
	PK         int64  `json:"pk"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ScreenName string `json:"screenName"`
}

// Profile is the body of GET /users/me/. Raw keeps every field the server
// sent, including ones not modelled here.
type Profile struct {
	PK         int64          `json:"pk"`
	Username   string         `json:"username"`
	Email      string         `json:"email"`
	ScreenName string         `json:"screenName"`
	GPA        *float64       `json:"gpa"`
	Raw        map[string]any `json:"-"`
}

// TokenPair is the body of a successful POST /jwt/create/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// wire bodies

type activateRequest struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// accessClaims are the fields read from the access token.
type accessClaims struct {
	UserID    string
	ExpiresAt time.Time
}
