package models

import "time"

type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
	RoleAdmin    Role = "ADMIN"
)

// Reputation field names. Each pair carries the same value under an old and
// a new name so older readers keep working.
const (
	FieldRole          = "role"
	FieldCompletedJobs = "completedJobs"
	FieldJobsCompleted = "jobsCompleted"
	FieldReviewCount   = "reviewCount"
	FieldTotalReviews  = "totalReviews"
	FieldRating        = "rating"
	FieldAverageRating = "averageRating"
)

// User is the provider view of a user record. The reputation fields are
// derived and only ever written by the stats aggregator.
type User struct {
	ID            string     `mapstructure:"-" json:"id"`
	Role          Role       `mapstructure:"role" json:"role"`
	Name          string     `mapstructure:"name" json:"name,omitempty"`
	FCMToken      string     `mapstructure:"fcmToken" json:"-"`
	CompletedJobs int        `mapstructure:"completedJobs" json:"completedJobs"`
	JobsCompleted int        `mapstructure:"jobsCompleted" json:"jobsCompleted"`
	ReviewCount   int        `mapstructure:"reviewCount" json:"reviewCount"`
	TotalReviews  int        `mapstructure:"totalReviews" json:"totalReviews"`
	Rating        float64    `mapstructure:"rating" json:"rating"`
	AverageRating float64    `mapstructure:"averageRating" json:"averageRating"`
	UpdatedAt     *time.Time `mapstructure:"updatedAt" json:"updatedAt,omitempty"`
}
