package models

import "time"

// Permanency is a barman's shift at a counter. A row with a nil End is an
// ongoing shift; Activity is bumped on every sale or refill.
type Permanency struct {
	ID        int64      `json:"id"`
	CounterID int64      `json:"counter_id" db:"counter_id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Start     time.Time  `json:"start" db:"start"`
	End       *time.Time `json:"end,omitempty" db:"end"`
	Activity  time.Time  `json:"activity" db:"activity"`
	User      *User      `json:"user,omitempty"` // For joining with User
}

// Duration returns the length of the shift, using the last activity for
// ongoing shifts.
func (p *Permanency) Duration() time.Duration {
	if p.End == nil {
		return p.Activity.Sub(p.Start)
	}
	return p.End.Sub(p.Start)
}
