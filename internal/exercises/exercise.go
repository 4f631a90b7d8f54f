package exercises

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrExerciseExists   = errors.New("exercise with this name already exists")
)

// Exercise is the app-facing exercise shape, shared by catalog results and
// user-created custom exercises.
type Exercise struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Muscle           string   `json:"muscle"`
	Equipments       []string `json:"equipments"`
	Difficulty       string   `json:"difficulty,omitempty"`
	Instructions     string   `json:"instructions,omitempty"`
	Type             string   `json:"type,omitempty"`
	GifURL           string   `json:"gifUrl,omitempty"`
	SecondaryMuscles []string `json:"secondaryMuscles,omitempty"`
	BodyParts        []string `json:"bodyParts,omitempty"`
	IsCustom         bool     `json:"isCustom"`
}

// CustomExercise is a user-created exercise as persisted. Names are unique
// case-insensitively.
type CustomExercise struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Muscle       string    `json:"muscle"`
	Equipments   []string  `json:"equipments"`
	Difficulty   string    `json:"difficulty"`
	Instructions string    `json:"instructions"`
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

func (ce CustomExercise) AsExercise() Exercise {
	equipments := ce.Equipments
	if equipments == nil {
		equipments = make([]string, 0)
	}
	return Exercise{
		ID:           strings.ToLower(strings.ReplaceAll(ce.Name, " ", "_")),
		Name:         ce.Name,
		Muscle:       ce.Muscle,
		Equipments:   equipments,
		Difficulty:   ce.Difficulty,
		Instructions: ce.Instructions,
		Type:         ce.Type,
		IsCustom:     true,
	}
}

// ListFilter narrows a custom exercise listing; empty fields match all.
type ListFilter struct {
	Name       string
	Muscle     string
	Type       string
	Difficulty string
}

// UpdateExercise carries the fields to change; nil fields are left as is.
type UpdateExercise struct {
	Name         *string  `json:"name"`
	Muscle       *string  `json:"muscle"`
	Equipments   []string `json:"equipments"`
	Difficulty   *string  `json:"difficulty"`
	Instructions *string  `json:"instructions"`
	Type         *string  `json:"type"`
}
