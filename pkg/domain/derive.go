package domain

import (
	"sort"
	"strings"
	"time"
)

// dayKeyLayout is the calendar-day key format used across the domain.
const dayKeyLayout = "2006-01-02"

// maxStreakLookback bounds the backward day walk when computing streaks.
const maxStreakLookback = 366

// DayKey returns the calendar-day key for t in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// Streak counts consecutive completed days walking backward from today and
// stops at the first gap. A missing today is that first gap, so the streak
// is zero until the day is completed.
func Streak(dayKeys []string, today time.Time) int {
	if len(dayKeys) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(dayKeys))
	for _, k := range dayKeys {
		set[k] = struct{}{}
	}
	day := today.UTC().Truncate(24 * time.Hour)
	streak := 0
	for i := 0; i < maxStreakLookback; i++ {
		if _, ok := set[DayKey(day)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// ActiveDays counts distinct completed days within the past n days including today.
func ActiveDays(dayKeys []string, today time.Time, n int) int {
	if n <= 0 {
		return 0
	}
	cutoff := DayKey(today.UTC().AddDate(0, 0, -(n - 1)))
	seen := make(map[string]struct{}, len(dayKeys))
	count := 0
	for _, k := range dayKeys {
		if k < cutoff || k > DayKey(today) {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		count++
	}
	return count
}

// WeeklyFeelingCounts tallies check-in feelings over the seven days ending today.
func WeeklyFeelingCounts(checkIns []CheckIn, today time.Time) map[Feeling]int {
	cutoff := today.UTC().AddDate(0, 0, -6).Truncate(24 * time.Hour)
	out := make(map[Feeling]int)
	for _, c := range checkIns {
		if c.CreatedAt.Before(cutoff) || c.CreatedAt.After(today) {
			continue
		}
		out[c.Feeling]++
	}
	return out
}

// StressorTally is one category of the top-stressor aggregation.
type StressorTally struct {
	Category string
	Count    int
}

// stressorKeywords categorizes free-text stressor answers. Matching is
// case-insensitive substring search; the first matching category wins.
var stressorKeywords = []struct {
	category string
	words    []string
}{
	{"school", []string{"school", "exam", "test", "homework", "grade", "class", "teacher"}},
	{"friends", []string{"friend", "bully", "lonely", "alone", "fight"}},
	{"family", []string{"family", "parent", "mom", "dad", "home", "sibling"}},
	{"sleep", []string{"sleep", "tired", "insomnia", "nightmare"}},
}

// TopStressors categorizes stressor/trigger answers across check-ins and
// returns category tallies sorted by count descending, then name.
func TopStressors(checkIns []CheckIn) []StressorTally {
	counts := map[string]int{}
	for _, c := range checkIns {
		for _, key := range []string{AnswerKeyStressor, AnswerKeyTrigger} {
			answer, ok := c.Answers[key]
			if !ok || strings.TrimSpace(answer) == "" {
				continue
			}
			counts[categorizeStressor(answer)]++
		}
	}
	out := make([]StressorTally, 0, len(counts))
	for cat, n := range counts {
		out = append(out, StressorTally{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func categorizeStressor(answer string) string {
	lowered := strings.ToLower(answer)
	for _, entry := range stressorKeywords {
		for _, w := range entry.words {
			if strings.Contains(lowered, w) {
				return entry.category
			}
		}
	}
	return "other"
}
