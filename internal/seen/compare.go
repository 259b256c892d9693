package seen

import (
	"strings"
	"unicode"

	"github.com/jimezsa/leadcli/internal/models"
)

const keySeparator = "::"

// DiffStats summarizes filtering fresh leads against a history.
type DiffStats struct {
	TotalNew    int
	TotalSeen   int
	InvalidNew  int
	InvalidSeen int
	Unseen      int
}

func (s DiffStats) InvalidSkipped() int {
	return s.InvalidNew + s.InvalidSeen
}

// MergeStats summarizes a history update.
type MergeStats struct {
	TotalSeen    int
	TotalInput   int
	InvalidSeen  int
	InvalidInput int
	Added        int
	TotalOut     int
}

func (s MergeStats) InvalidSkipped() int {
	return s.InvalidSeen + s.InvalidInput
}

// Normalize lowercases and collapses whitespace.
func Normalize(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// Key identifies a business by name plus phone digits, falling back to the
// street when the listing has no phone.
func Key(lead models.Lead) (string, bool) {
	name := Normalize(lead.BusinessName)
	if name == "" {
		return "", false
	}
	where := digits(lead.Phone)
	if where == "" {
		where = Normalize(lead.Street)
	}
	if where == "" {
		return "", false
	}
	return name + keySeparator + where, true
}

func digits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type keySet map[string]struct{}

// add reports whether key was not present yet.
func (s keySet) add(key string) bool {
	if _, exists := s[key]; exists {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Diff returns the leads in fresh whose key is absent from history. Duplicates
// within fresh keep their first occurrence.
func Diff(fresh []models.Lead, history []models.Lead) ([]models.Lead, DiffStats) {
	stats := DiffStats{TotalNew: len(fresh), TotalSeen: len(history)}

	known := make(keySet, len(history))
	for _, lead := range history {
		key, ok := Key(lead)
		if !ok {
			stats.InvalidSeen++
			continue
		}
		known.add(key)
	}

	emitted := make(keySet, len(fresh))
	unseen := make([]models.Lead, 0, len(fresh))
	for _, lead := range fresh {
		key, ok := Key(lead)
		if !ok {
			stats.InvalidNew++
			continue
		}
		if !emitted.add(key) {
			continue
		}
		if _, exists := known[key]; !exists {
			unseen = append(unseen, lead)
		}
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Merge appends leads with new keys to history. History entries win
// collisions and keyless history entries are preserved.
func Merge(history []models.Lead, input []models.Lead) ([]models.Lead, MergeStats) {
	stats := MergeStats{TotalSeen: len(history), TotalInput: len(input)}

	keys := make(keySet, len(history)+len(input))
	out := make([]models.Lead, 0, len(history)+len(input))
	for _, lead := range history {
		key, ok := Key(lead)
		if !ok {
			stats.InvalidSeen++
			out = append(out, lead)
			continue
		}
		if keys.add(key) {
			out = append(out, lead)
		}
	}

	for _, lead := range input {
		key, ok := Key(lead)
		if !ok {
			stats.InvalidInput++
			continue
		}
		if keys.add(key) {
			out = append(out, lead)
			stats.Added++
		}
	}

	stats.TotalOut = len(out)
	return out, stats
}
