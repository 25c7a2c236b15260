package core

import (
	"errors"
	"sort"
)

// Operation-level validation errors surfaced before any state mutation.
var (
	errEmptyCrisisAction      = errors.New("crisis action must not be empty")
	errReportsDisabled        = errors.New("incident reports are disabled by school configuration")
	errQuestionnairesDisabled = errors.New("questionnaires are disabled by school configuration")
	errBadAnswerCount         = errors.New("unexpected questionnaire answer count")
)

// toggleSortedSet inserts value into the sorted set if absent, removes it if
// present. Applying it twice returns the original set.
func toggleSortedSet(set []string, value string) []string {
	idx := sort.SearchStrings(set, value)
	if idx < len(set) && set[idx] == value {
		return append(set[:idx:idx], set[idx+1:]...)
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set[:idx]...)
	out = append(out, value)
	out = append(out, set[idx:]...)
	return out
}
