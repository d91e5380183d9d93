package characters

import (
	"math/rand"
	"sort"
	"strings"
)

const (
	// MinScore is the relevance a character must exceed to be returned.
	MinScore = 0.2

	// fuzzyThreshold is the edit similarity above which two words count
	// as a near match.
	fuzzyThreshold = 0.7

	// DefaultRandomCount is used by Random for non-positive counts.
	DefaultRandomCount = 4
)

// Match is a search hit with its relevance.
type Match struct {
	Character Character `json:"character"`
	Score     float64   `json:"score"`
}

// Search ranks the roster against query and returns the characters
// scoring above MinScore, best first. A blank query returns everyone
// with a zero score.
func Search(query string) []Match {
	if strings.TrimSpace(query) == "" {
		matches := make([]Match, len(roster))
		for i, c := range roster {
			matches[i] = Match{Character: c}
		}
		return matches
	}

	var matches []Match
	for _, c := range roster {
		score := CalculateSimilarity(query, searchableText(c))
		if score > MinScore {
			matches = append(matches, Match{Character: c, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// CalculateSimilarity scores text against query word by word. Each
// (query word, text word) pair adds 1 when one contains the other, plus
// half the edit similarity when both are longer than two letters and
// that similarity is above 0.7. The total is averaged over query words.
func CalculateSimilarity(query, text string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}
	textWords := strings.Fields(strings.ToLower(text))

	var score float64
	for _, qw := range queryWords {
		for _, tw := range textWords {
			if strings.Contains(tw, qw) || strings.Contains(qw, tw) {
				score++
			}
			if len([]rune(tw)) > 2 && len([]rune(qw)) > 2 {
				if sim := editSimilarity(qw, tw); sim > fuzzyThreshold {
					score += sim * 0.5
				}
			}
		}
	}
	return score / float64(len(queryWords))
}

// editSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func editSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func searchableText(c Character) string {
	parts := []string{c.Name, c.Description, c.Origin, c.Catchphrase, c.Appearance}
	parts = append(parts, c.Keywords...)
	parts = append(parts, c.Categories...)
	parts = append(parts, c.Personality...)
	parts = append(parts, c.Abilities...)
	parts = append(parts, c.Quotes...)
	parts = append(parts, c.Tags...)
	return strings.Join(parts, " ")
}

// ByCategory returns the characters filed under category; "all" returns
// the whole roster.
func ByCategory(category string) []Character {
	if category == "all" {
		return All()
	}
	var out []Character
	for _, c := range roster {
		if c.HasCategory(category) {
			out = append(out, c)
		}
	}
	return out
}

// Categories lists every category in roster order without duplicates.
func Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range roster {
		for _, cat := range c.Categories {
			if !seen[cat] {
				seen[cat] = true
				out = append(out, cat)
			}
		}
	}
	return out
}

// Random returns up to n distinct characters in random order.
func Random(n int) []Character {
	if n <= 0 {
		n = DefaultRandomCount
	}
	shuffled := All()
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
