package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the user's position inside a sales team
type Role string

const (
	RoleSalesRep Role = "sales_rep"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSalesRep, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsPrivileged is true for roles that manage a team
func (r Role) IsPrivileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID             string    `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email          string    `json:"email" db:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-" db:"password_hash" gorm:"column:password_hash;not null"` // Never return password in JSON
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	Role           Role      `json:"role" db:"role" gorm:"type:text;default:sales_rep"`
	OrganizationID *string   `json:"organizationId" db:"organization_id" gorm:"type:uuid"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName pins the gorm table name
func (User) TableName() string {
	return "users"
}

// UserProfile is the identity projection attached to authenticated requests
type UserProfile struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Role           Role    `json:"role"`
	OrganizationID *string `json:"organizationId"`
}

// Profile returns the public projection of the user
func (u *User) Profile() *UserProfile {
	return &UserProfile{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

// UserSummary is the row shape returned by user and team listings
type UserSummary struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the listing projection of the user
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// UserRegisterRequest represents the request payload for user registration
type UserRegisterRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"firstName" validate:"required"`
	LastName         string `json:"lastName" validate:"required"`
	Role             string `json:"role,omitempty"`
	OrganizationID   string `json:"organizationId,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// UserLoginRequest represents the request payload for user login
type UserLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user"`
}

// TokenClaims represents the JWT token claims
type TokenClaims struct {
	UserID         string  `json:"userId"`
	Email          string  `json:"email"`
	Role           Role    `json:"role"`
	OrganizationID *string `json:"organizationId"`
	Exp            int64   `json:"exp"`
	Iat            int64   `json:"iat"`
}

// GetExpirationTime implements jwt.Claims interface
func (c *TokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.Exp == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.Exp, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *TokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.Iat, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (c *TokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *TokenClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims interface
func (c *TokenClaims) GetSubject() (string, error) {
	return c.UserID, nil
}

// GetAudience implements jwt.Claims interface
func (c *TokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
