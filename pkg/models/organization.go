package models

import "time"

// Organization is a sales team; users join one at registration
type Organization struct {
	ID        string    `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" db:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// TableName pins the gorm table name
func (Organization) TableName() string {
	return "organizations"
}

// OrganizationSummary is the public listing shape
type OrganizationSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
