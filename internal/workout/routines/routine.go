package routines

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDay = errors.New("invalid day")

// WeekDays are the seven canonical day identifiers, in week order.
// Routine days are always stored in this lowercase form.
var WeekDays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

func IsValidDay(day string) bool {
	for _, d := range WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

func NormalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}

// RoutineExercise is one exercise entry within a day routine. The name is
// stored verbatim, but exercise identity within a routine is always matched
// case-insensitively.
type RoutineExercise struct {
	Name         string   `json:"name"`
	Muscle       string   `json:"muscle"`
	Equipments   []string `json:"equipments,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Type         string   `json:"type,omitempty"`
	IsCustom     bool     `json:"isCustom"`
}

// DayRoutine is the ordered exercise list scheduled for one (user, day) pair.
// At most one routine exists per (user, day).
type DayRoutine struct {
	ID        int64             `json:"id,omitempty"`
	UserID    string            `json:"userId"`
	Day       string            `json:"day"`
	Exercises []RoutineExercise `json:"exercises"`
	CreatedAt time.Time         `json:"createdAt,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// EmptyRoutine is the synthetic zero-exercise routine returned for days
// that were never scheduled. Callers treat it the same as a stored
// routine with no exercises.
func EmptyRoutine(userID, day string) *DayRoutine {
	return &DayRoutine{
		UserID:    userID,
		Day:       day,
		Exercises: make([]RoutineExercise, 0),
	}
}

// ContainsExercise reports whether the routine holds an exercise with the
// given name, matched case-insensitively.
func (dr *DayRoutine) ContainsExercise(name string) bool {
	for _, ex := range dr.Exercises {
		if strings.EqualFold(ex.Name, name) {
			return true
		}
	}
	return false
}
