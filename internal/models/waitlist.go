package models

import "time"

// WaitlistEntry is one signup. Email is stored already normalized.
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_waitlist_entries_email" json:"email"`
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
