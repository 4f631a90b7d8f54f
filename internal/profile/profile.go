package profile

import (
	"math"
	"time"
)

// Profile holds a user's body composition and measurements. All numeric
// fields are optional, the mobile client sends whatever the user filled in.
type Profile struct {
	UserID            string        `json:"userId"`
	Weight            *float64      `json:"weight"`
	Height            *float64      `json:"height"`
	FatMass           *float64      `json:"fatMass"`
	MuscleMass        *float64      `json:"muscleMass"`
	BodyFatPercentage *float64      `json:"bodyFatPercentage"`
	BMI               *float64      `json:"bmi"`
	Waist             *float64      `json:"waist"`
	Chest             *float64      `json:"chest"`
	Arms              *float64      `json:"arms"`
	Thighs            *float64      `json:"thighs"`
	Age               *int          `json:"age"`
	Gender            string        `json:"gender,omitempty"`
	GoalWeight        *float64      `json:"goalWeight"`
	Notes             string        `json:"notes"`
	CustomFields      []CustomField `json:"customFields"`
	CreatedAt         time.Time     `json:"createdAt,omitempty"`
	UpdatedAt         time.Time     `json:"updatedAt,omitempty"`
}

type CustomField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// HistoryRecord is one body composition snapshot.
type HistoryRecord struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"userId"`
	Weight            *float64  `json:"weight"`
	FatMass           *float64  `json:"fatMass"`
	MuscleMass        *float64  `json:"muscleMass"`
	BodyFatPercentage *float64  `json:"bodyFatPercentage"`
	Notes             string    `json:"notes"`
	RecordedAt        time.Time `json:"recordedAt"`
}

// EmptyProfile is what a user without a stored profile gets back, the
// client treats it the same as a cleared-out profile.
func EmptyProfile(userID string) *Profile {
	return &Profile{
		UserID:       userID,
		CustomFields: make([]CustomField, 0),
	}
}

// DeriveBodyStats fills in BMI (from weight and height) and body fat
// percentage (from fat mass and weight) when the caller did not supply
// them, both rounded to one decimal.
func (p *Profile) DeriveBodyStats() {
	if p.BMI == nil && p.Weight != nil && p.Height != nil && *p.Height > 0 {
		heightMeters := *p.Height / 100
		bmi := roundToOneDecimal(*p.Weight / (heightMeters * heightMeters))
		p.BMI = &bmi
	}
	if p.BodyFatPercentage == nil && p.FatMass != nil && p.Weight != nil && *p.Weight > 0 {
		bfp := roundToOneDecimal(*p.FatMass / *p.Weight * 100)
		p.BodyFatPercentage = &bfp
	}
}

func roundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}
