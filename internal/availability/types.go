package availability

import (
	"context"
	"time"
)

// Booking statuses. Only pending and confirmed bookings occupy time.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Rule is a recurring weekly opening window. Times are wall-clock "HH:mm"
// strings interpreted in Timezone (owner timezone when empty).
type Rule struct {
	ID        int       `json:"id"`
	DayOfWeek int       `json:"day_of_week"` // 0=Sunday..6=Saturday
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Timezone  string    `json:"timezone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BlockedDate is a one-off exclusion. With no StartTime/EndTime the whole
// day is blocked; otherwise only the sub-range.
type BlockedDate struct {
	ID        int       `json:"id"`
	Date      string    `json:"date"` // "YYYY-MM-DD"
	StartTime string    `json:"start_time,omitempty"`
	EndTime   string    `json:"end_time,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// AllDay reports whether the block covers the whole calendar day.
func (b BlockedDate) AllDay() bool {
	return b.StartTime == "" && b.EndTime == ""
}

type Booking struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StartAt   time.Time `json:"start_at_utc"`
	EndAt     time.Time `json:"end_at_utc"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Policy holds booking-wide settings with defaults substituted for any
// unset field.
type Policy struct {
	MinNoticeHours   int   `json:"min_notice_hours"`
	BufferMinutes    int   `json:"buffer_minutes"`
	MaxAdvanceDays   int   `json:"max_advance_days"`
	AllowedDurations []int `json:"allowed_durations"`
}

func DefaultPolicy() Policy {
	return Policy{
		MinNoticeHours:   24,
		BufferMinutes:    15,
		MaxAdvanceDays:   60,
		AllowedDurations: []int{15, 30, 60},
	}
}

// DurationAllowed reports whether d (minutes) is a permitted meeting length.
func (p Policy) DurationAllowed(d int) bool {
	for _, a := range p.AllowedDurations {
		if a == d {
			return true
		}
	}
	return false
}

// Slot is a bookable interval. Only available slots are ever emitted.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Collaborator interfaces implemented by the persistence layer.
type RuleSource interface {
	RulesByDay(ctx context.Context, dayOfWeek int) ([]Rule, error)
}

type BookingSource interface {
	BookingsOverlappingDay(ctx context.Context, dayStart, dayEnd time.Time) ([]Booking, error)
}

type BlockSource interface {
	BlocksForDay(ctx context.Context, date string) ([]BlockedDate, error)
}

type PolicySource interface {
	Policy(ctx context.Context) (Policy, error)
}
