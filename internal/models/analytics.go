package models

import "time"

// DailyAnalytics holds one usage summary row per calendar date.
type DailyAnalytics struct {
	ID                int64     `json:"id"`
	Date              time.Time `json:"date"`
	NewUsersCount     int64     `json:"new_users_count"`
	MessagesSentCount int64     `json:"messages_sent_count"`
}
