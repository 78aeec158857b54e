package models

import "time"

// Meetings targets are fixed and never persisted
const (
	MeetingsPerDay  = 2
	MeetingsPerWeek = 10
)

// Goals is either personal (UserID set) or organization-wide (OrganizationID set)
type Goals struct {
	ID               string    `db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID           *string   `db:"user_id" gorm:"type:uuid"`
	OrganizationID   *string   `db:"organization_id" gorm:"type:uuid"`
	CallsPerDay      int       `db:"calls_per_day"`
	EmailsPerDay     int       `db:"emails_per_day"`
	ContactsPerDay   int       `db:"contacts_per_day"`
	ResponsesPerDay  int       `db:"responses_per_day"`
	CallsPerWeek     int       `db:"calls_per_week"`
	EmailsPerWeek    int       `db:"emails_per_week"`
	ContactsPerWeek  int       `db:"contacts_per_week"`
	ResponsesPerWeek int       `db:"responses_per_week"`
	IsActive         bool      `db:"is_active"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// TableName pins the gorm table name
func (Goals) TableName() string {
	return "goals"
}

// IsOrganizationScope reports whether the record is organization-wide
func (g *Goals) IsOrganizationScope() bool {
	return g.OrganizationID != nil && g.UserID == nil
}

// GoalsData is the projection returned to clients
type GoalsData struct {
	CallsPerDay      int `json:"callsPerDay"`
	EmailsPerDay     int `json:"emailsPerDay"`
	ContactsPerDay   int `json:"contactsPerDay"`
	ResponsesPerDay  int `json:"responsesPerDay"`
	CallsPerWeek     int `json:"callsPerWeek"`
	EmailsPerWeek    int `json:"emailsPerWeek"`
	ContactsPerWeek  int `json:"contactsPerWeek"`
	ResponsesPerWeek int `json:"responsesPerWeek"`
	MeetingsPerDay   int `json:"meetingsPerDay"`
	MeetingsPerWeek  int `json:"meetingsPerWeek"`
}

// DefaultGoalsData is served to users without an organization
func DefaultGoalsData() *GoalsData {
	return &GoalsData{
		CallsPerDay:      25,
		EmailsPerDay:     30,
		ContactsPerDay:   10,
		ResponsesPerDay:  5,
		CallsPerWeek:     125,
		EmailsPerWeek:    150,
		ContactsPerWeek:  50,
		ResponsesPerWeek: 25,
		MeetingsPerDay:   MeetingsPerDay,
		MeetingsPerWeek:  MeetingsPerWeek,
	}
}

// NewDefaultGoals returns an unsaved active record carrying the default targets
func NewDefaultGoals() *Goals {
	d := DefaultGoalsData()
	return &Goals{
		CallsPerDay:      d.CallsPerDay,
		EmailsPerDay:     d.EmailsPerDay,
		ContactsPerDay:   d.ContactsPerDay,
		ResponsesPerDay:  d.ResponsesPerDay,
		CallsPerWeek:     d.CallsPerWeek,
		EmailsPerWeek:    d.EmailsPerWeek,
		ContactsPerWeek:  d.ContactsPerWeek,
		ResponsesPerWeek: d.ResponsesPerWeek,
		IsActive:         true,
	}
}

// Data merges the fixed meetings targets into the stored values
func (g *Goals) Data() *GoalsData {
	return &GoalsData{
		CallsPerDay:      g.CallsPerDay,
		EmailsPerDay:     g.EmailsPerDay,
		ContactsPerDay:   g.ContactsPerDay,
		ResponsesPerDay:  g.ResponsesPerDay,
		CallsPerWeek:     g.CallsPerWeek,
		EmailsPerWeek:    g.EmailsPerWeek,
		ContactsPerWeek:  g.ContactsPerWeek,
		ResponsesPerWeek: g.ResponsesPerWeek,
		MeetingsPerDay:   MeetingsPerDay,
		MeetingsPerWeek:  MeetingsPerWeek,
	}
}

// GoalsUpdateRequest carries the eight editable targets; all are required
type GoalsUpdateRequest struct {
	CallsPerDay      *int `json:"callsPerDay" validate:"required"`
	EmailsPerDay     *int `json:"emailsPerDay" validate:"required"`
	ContactsPerDay   *int `json:"contactsPerDay" validate:"required"`
	ResponsesPerDay  *int `json:"responsesPerDay" validate:"required"`
	CallsPerWeek     *int `json:"callsPerWeek" validate:"required"`
	EmailsPerWeek    *int `json:"emailsPerWeek" validate:"required"`
	ContactsPerWeek  *int `json:"contactsPerWeek" validate:"required"`
	ResponsesPerWeek *int `json:"responsesPerWeek" validate:"required"`
}

// Values lists the targets in a fixed order; nil entries are missing fields
func (r *GoalsUpdateRequest) Values() []*int {
	return []*int{
		r.CallsPerDay, r.EmailsPerDay, r.ContactsPerDay, r.ResponsesPerDay,
		r.CallsPerWeek, r.EmailsPerWeek, r.ContactsPerWeek, r.ResponsesPerWeek,
	}
}

// ApplyTo overwrites the eight stored targets; callers validate first
func (r *GoalsUpdateRequest) ApplyTo(g *Goals) {
	g.CallsPerDay = *r.CallsPerDay
	g.EmailsPerDay = *r.EmailsPerDay
	g.ContactsPerDay = *r.ContactsPerDay
	g.ResponsesPerDay = *r.ResponsesPerDay
	g.CallsPerWeek = *r.CallsPerWeek
	g.EmailsPerWeek = *r.EmailsPerWeek
	g.ContactsPerWeek = *r.ContactsPerWeek
	g.ResponsesPerWeek = *r.ResponsesPerWeek
}
