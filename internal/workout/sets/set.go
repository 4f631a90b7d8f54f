package sets

import "time"

// Set is one performed (logged) set of an exercise.
// Volume and Estimated1RM are derived from weight/reps at write time
// and never accepted from the caller. CreatedAt is server-assigned.
type Set struct {
	ID           int64     `json:"id"`
	ExerciseName string    `json:"exerciseName"`
	Weight       float64   `json:"weight"`
	Reps         int       `json:"reps"`
	RPE          *int      `json:"rpe,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	UserID       string    `json:"userId"`
	Day          string    `json:"day,omitempty"`
	Volume       float64   `json:"volume"`
	Estimated1RM float64   `json:"estimated1RM"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is one calendar day's sets of one exercise.
type Session struct {
	Date        time.Time `json:"date"`
	Sets        []Set     `json:"sets"`
	MaxWeight   float64   `json:"maxWeight"`
	TotalVolume float64   `json:"totalVolume"`
	Max1RM      float64   `json:"max1RM"`
	AvgRPE      float64   `json:"avgRPE"`
}

// History is the session-grouped view of an exercise's logged sets.
type History struct {
	ExerciseName  string    `json:"exerciseName"`
	Sessions      []Session `json:"sessions"`
	TotalSessions int       `json:"totalSessions"`
}
