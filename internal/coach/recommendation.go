package coach

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

type ProgressionTip struct {
	Exercise       string `json:"exercise"`
	CurrentLevel   string `json:"currentLevel"`
	Recommendation string `json:"recommendation"`
	Reasoning      string `json:"reasoning"`
}

type WeakPoint struct {
	Area        string `json:"area"`
	Explanation string `json:"explanation"`
	Fix         string `json:"fix"`
}

type RoutineSuggestion struct {
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

type Recommendation struct {
	Summary               string              `json:"summary"`
	ProgressionTips       []ProgressionTip    `json:"progressionTips"`
	WeakPoints            []WeakPoint         `json:"weakPoints"`
	RoutineSuggestions    []RoutineSuggestion `json:"routineSuggestions"`
	RecoveryTips          []string            `json:"recoveryTips"`
	BodyCompositionAdvice string              `json:"bodyCompositionAdvice"`
}

// DataSnapshot records what data the recommendation was built from.
type DataSnapshot struct {
	HasProfile     bool `json:"hasProfile"`
	RoutineCount   int  `json:"routineCount"`
	RecentSetCount int  `json:"recentSetCount"`
}

// CachedRecommendation is the last generated recommendation per user.
type CachedRecommendation struct {
	UserID         string         `json:"userId"`
	Recommendation Recommendation `json:"recommendations"`
	DataSnapshot   DataSnapshot   `json:"dataSnapshot"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

var markdownCodeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseRecommendation extracts the structured recommendation from the
// model's response, tolerating a markdown code fence around the JSON.
// A response that is not parseable at all becomes a plain-text summary
// rather than an error, so the user still sees something.
func ParseRecommendation(text string) Recommendation {
	jsonStr := strings.TrimSpace(text)
	if match := markdownCodeBlockRe.FindStringSubmatch(text); match != nil {
		jsonStr = strings.TrimSpace(match[1])
	}

	var recommendation Recommendation
	if err := json.Unmarshal([]byte(jsonStr), &recommendation); err != nil {
		log.Errorf("failed to parse recommendation response as json: %s", err)
		recommendation = Recommendation{Summary: text}
	}

	if recommendation.ProgressionTips == nil {
		recommendation.ProgressionTips = make([]ProgressionTip, 0)
	}
	if recommendation.WeakPoints == nil {
		recommendation.WeakPoints = make([]WeakPoint, 0)
	}
	if recommendation.RoutineSuggestions == nil {
		recommendation.RoutineSuggestions = make([]RoutineSuggestion, 0)
	}
	if recommendation.RecoveryTips == nil {
		recommendation.RecoveryTips = make([]string, 0)
	}
	return recommendation
}
