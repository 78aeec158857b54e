package models

import "time"

// Weekdays in the order a sales week is reported
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// DayCounts holds one weekday's activity counters
type DayCounts struct {
	Calls     int `json:"calls"`
	Emails    int `json:"emails"`
	Contacts  int `json:"contacts"`
	Responses int `json:"responses"`
}

// WeeklyActivity is keyed by (UserID, WeekStartDate); WeekStartDate is a Monday in YYYY-MM-DD
type WeeklyActivity struct {
	ID            string    `db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        string    `db:"user_id" gorm:"type:uuid;not null"`
	WeekStartDate string    `db:"week_start_date" gorm:"not null"`
	Monday        DayCounts `gorm:"embedded;embeddedPrefix:monday_"`
	Tuesday       DayCounts `gorm:"embedded;embeddedPrefix:tuesday_"`
	Wednesday     DayCounts `gorm:"embedded;embeddedPrefix:wednesday_"`
	Thursday      DayCounts `gorm:"embedded;embeddedPrefix:thursday_"`
	Friday        DayCounts `gorm:"embedded;embeddedPrefix:friday_"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// TableName pins the gorm table name
func (WeeklyActivity) TableName() string {
	return "weekly_activities"
}

// Days returns pointers to the five weekday groups, Monday first
func (a *WeeklyActivity) Days() []*DayCounts {
	return []*DayCounts{&a.Monday, &a.Tuesday, &a.Wednesday, &a.Thursday, &a.Friday}
}

// Counters flattens the 20 counters in column order
func (a *WeeklyActivity) Counters() []int {
	out := make([]int, 0, 20)
	for _, d := range a.Days() {
		out = append(out, d.Calls, d.Emails, d.Contacts, d.Responses)
	}
	return out
}

// WeekActivity is the per-weekday projection returned to clients
type WeekActivity struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"userId,omitempty"`
	WeekStartDate string    `json:"weekStartDate"`
	Monday        DayCounts `json:"monday"`
	Tuesday       DayCounts `json:"tuesday"`
	Wednesday     DayCounts `json:"wednesday"`
	Thursday      DayCounts `json:"thursday"`
	Friday        DayCounts `json:"friday"`
}

// View projects the record; withOwner adds id and userId for team views
func (a *WeeklyActivity) View(withOwner bool) *WeekActivity {
	v := &WeekActivity{
		WeekStartDate: a.WeekStartDate,
		Monday:        a.Monday,
		Tuesday:       a.Tuesday,
		Wednesday:     a.Wednesday,
		Thursday:      a.Thursday,
		Friday:        a.Friday,
	}
	if withOwner {
		v.ID = a.ID
		v.UserID = a.UserID
	}
	return v
}

// DayCountsInput is one weekday of a save payload; missing counters are 0
type DayCountsInput struct {
	Calls     *int `json:"calls"`
	Emails    *int `json:"emails"`
	Contacts  *int `json:"contacts"`
	Responses *int `json:"responses"`
}

// WeekActivityRequest is the save payload; every weekday is optional
type WeekActivityRequest struct {
	WeekStartDate string          `json:"weekStartDate"`
	Monday        *DayCountsInput `json:"monday"`
	Tuesday       *DayCountsInput `json:"tuesday"`
	Wednesday     *DayCountsInput `json:"wednesday"`
	Thursday      *DayCountsInput `json:"thursday"`
	Friday        *DayCountsInput `json:"friday"`
}

// Days returns the weekday inputs, Monday first; entries may be nil
func (r *WeekActivityRequest) Days() []*DayCountsInput {
	return []*DayCountsInput{r.Monday, r.Tuesday, r.Wednesday, r.Thursday, r.Friday}
}

// Resolve applies the zero defaults
func (in *DayCountsInput) Resolve() DayCounts {
	if in == nil {
		return DayCounts{}
	}
	return DayCounts{
		Calls:     valueOrZero(in.Calls),
		Emails:    valueOrZero(in.Emails),
		Contacts:  valueOrZero(in.Contacts),
		Responses: valueOrZero(in.Responses),
	}
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
