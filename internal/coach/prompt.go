package coach

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mvukovic/liftlog/internal/profile"
	"github.com/mvukovic/liftlog/internal/workout/analytics"
	"github.com/mvukovic/liftlog/internal/workout/routines"
	"github.com/mvukovic/liftlog/internal/workout/sets"
)

const promptSessionsPerExercise = 3

// BuildPrompt assembles the coaching prompt from everything the system
// knows about the user: profile, weekly routine, recent set history and
// the muscle split. Sections degrade gracefully when data is missing so
// the model always gets a complete picture of what is and is not known.
func BuildPrompt(
	userProfile *profile.Profile,
	userRoutines []routines.DayRoutine,
	recentSets []sets.Set,
	split *analytics.MuscleSplit,
) string {
	var b strings.Builder

	b.WriteString("You are an expert fitness coach and sports scientist. ")
	b.WriteString("Based on the following user data, provide personalized workout recommendations. ")
	b.WriteString("Be specific with numbers (weights, reps, sets). Be practical and actionable.\n\n")

	writeProfileSection(&b, userProfile)
	writeRoutineSection(&b, userRoutines)
	writeHistorySection(&b, recentSets)
	writeMuscleSplitSection(&b, split)

	b.WriteString(promptResponseFormat)

	return b.String()
}

func writeProfileSection(b *strings.Builder, userProfile *profile.Profile) {
	b.WriteString("**USER PROFILE:**\n")
	if userProfile == nil {
		b.WriteString("- No profile data available\n")
		return
	}

	writeIntLine := func(label string, value *int, unit string) {
		if value != nil {
			fmt.Fprintf(b, "- %s: %d%s\n", label, *value, unit)
		}
	}
	writeFloatLine := func(label string, value *float64, unit string) {
		if value != nil {
			fmt.Fprintf(b, "- %s: %s%s\n", label, formatNumber(*value), unit)
		}
	}

	writeIntLine("Age", userProfile.Age, "")
	if userProfile.Gender != "" {
		fmt.Fprintf(b, "- Gender: %s\n", userProfile.Gender)
	}
	writeFloatLine("Weight", userProfile.Weight, " kg")
	writeFloatLine("Height", userProfile.Height, " cm")
	writeFloatLine("BMI", userProfile.BMI, "")
	writeFloatLine("Body Fat", userProfile.BodyFatPercentage, "%")
	writeFloatLine("Muscle Mass", userProfile.MuscleMass, " kg")
	writeFloatLine("Fat Mass", userProfile.FatMass, " kg")
	writeFloatLine("Goal Weight", userProfile.GoalWeight, " kg")
	writeFloatLine("Waist", userProfile.Waist, " cm")
	writeFloatLine("Chest", userProfile.Chest, " cm")
	writeFloatLine("Arms", userProfile.Arms, " cm")
	writeFloatLine("Thighs", userProfile.Thighs, " cm")
	if userProfile.Notes != "" {
		fmt.Fprintf(b, "- User Notes: %s\n", userProfile.Notes)
	}
}

func writeRoutineSection(b *strings.Builder, userRoutines []routines.DayRoutine) {
	b.WriteString("\n**WEEKLY ROUTINE:**\n")
	if len(userRoutines) == 0 {
		b.WriteString("- No routines configured yet\n")
		return
	}

	dayIndex := make(map[string]int, len(routines.WeekDays))
	for i, day := range routines.WeekDays {
		dayIndex[day] = i
	}
	sorted := append([]routines.DayRoutine{}, userRoutines...)
	sort.Slice(sorted, func(i, j int) bool {
		return dayIndex[sorted[i].Day] < dayIndex[sorted[j].Day]
	})

	for _, routine := range sorted {
		if len(routine.Exercises) == 0 {
			fmt.Fprintf(b, "- %s: Rest day\n", capitalize(routine.Day))
			continue
		}
		entries := make([]string, 0, len(routine.Exercises))
		for _, exercise := range routine.Exercises {
			entry := exercise.Name
			if exercise.Muscle != "" {
				entry += fmt.Sprintf(" (%s)", exercise.Muscle)
			}
			entries = append(entries, entry)
		}
		fmt.Fprintf(b, "- %s: %s\n", capitalize(routine.Day), strings.Join(entries, ", "))
	}
}

func writeHistorySection(b *strings.Builder, recentSets []sets.Set) {
	b.WriteString("\n**RECENT WORKOUT HISTORY (last 7 days):**\n")
	if len(recentSets) == 0 {
		b.WriteString("- No workout data recorded yet\n")
		return
	}

	sorted := append([]sets.Set{}, recentSets...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var exerciseOrder []string
	exercise2sets := make(map[string][]sets.Set)
	for _, set := range sorted {
		if _, ok := exercise2sets[set.ExerciseName]; !ok {
			exerciseOrder = append(exerciseOrder, set.ExerciseName)
		}
		exercise2sets[set.ExerciseName] = append(exercise2sets[set.ExerciseName], set)
	}

	for _, exerciseName := range exerciseOrder {
		fmt.Fprintf(b, "\n  %s:\n", exerciseName)

		var dateOrder []string
		date2sets := make(map[string][]sets.Set)
		for _, set := range exercise2sets[exerciseName] {
			date := set.CreatedAt.UTC().Format("2006-01-02")
			if _, ok := date2sets[date]; !ok {
				dateOrder = append(dateOrder, date)
			}
			date2sets[date] = append(date2sets[date], set)
		}
		if len(dateOrder) > promptSessionsPerExercise {
			dateOrder = dateOrder[:promptSessionsPerExercise]
		}

		for _, date := range dateOrder {
			sessionSets := date2sets[date]
			setsInfo := make([]string, 0, len(sessionSets))
			var maxWeight, max1RM, totalVolume float64
			for _, set := range sessionSets {
				info := fmt.Sprintf("%skg x %d", formatNumber(set.Weight), set.Reps)
				if set.RPE != nil {
					info += fmt.Sprintf(" @RPE%d", *set.RPE)
				}
				setsInfo = append(setsInfo, info)
				maxWeight = max(maxWeight, set.Weight)
				max1RM = max(max1RM, set.Estimated1RM)
				totalVolume += set.Volume
			}
			fmt.Fprintf(
				b, "    %s: %s | Max: %skg | Est 1RM: %skg | Volume: %skg\n",
				date, strings.Join(setsInfo, ", "),
				formatNumber(maxWeight), formatNumber(max1RM), formatNumber(totalVolume),
			)
		}
	}
}

func writeMuscleSplitSection(b *strings.Builder, split *analytics.MuscleSplit) {
	if split == nil || len(split.Breakdown) == 0 {
		return
	}
	b.WriteString("\n**MUSCLE SPLIT (last 30 days):**\n")
	for _, entry := range split.Breakdown {
		fmt.Fprintf(b, "- %s: %d sets (%d%%)\n", entry.Muscle, entry.Sets, entry.Percentage)
	}
	fmt.Fprintf(b, "- Total sets: %d\n", split.TotalSets)
}

const promptResponseFormat = `
Based on ALL the above data, provide your recommendations in the following JSON format. Be very specific and personalized: reference the user's actual numbers, exercises, and progress. Do NOT give generic advice.

Respond ONLY with valid JSON in this exact structure:
{
  "summary": "A 2-3 sentence overall assessment of the user's training",
  "progressionTips": [
    {
      "exercise": "Exercise Name",
      "currentLevel": "Brief description of where they are",
      "recommendation": "Specific next-session recommendation with exact weights/reps",
      "reasoning": "Why this progression makes sense"
    }
  ],
  "weakPoints": [
    {
      "area": "The weak point or imbalance",
      "explanation": "Why this is a concern",
      "fix": "Specific actionable fix"
    }
  ],
  "routineSuggestions": [
    {
      "suggestion": "Specific routine change",
      "reason": "Why this change would help"
    }
  ],
  "recoveryTips": [
    "Specific recovery recommendation based on their volume/frequency"
  ],
  "bodyCompositionAdvice": "Personalized advice based on their body metrics and goals (2-3 sentences)"
}`

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
