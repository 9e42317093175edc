// Package search ranks decrypted vault entries against a query with some
// special case considerations.
//
// Matching is case-insensitive over NFC-normalized text. A title prefix
// match outranks a title substring match, which outranks a username
// substring match. Ties order by case-folded title, stably.
package search

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MinQueryLen is the shortest query that produces results.
const MinQueryLen = 2

// MaxResults caps the result list.
const MaxResults = 50

const (
	scoreTitlePrefix    = 3
	scoreTitleSubstring = 2
	scoreUsername       = 1
)

// Item is the searchable projection of an entry. It carries no secrets.
type Item struct {
	ID       string
	Title    string
	Username string
	IconURL  string
}

// Rank scores items against query and returns matches, best first, capped
// at MaxResults. Queries shorter than MinQueryLen return nothing.
func Rank(items []Item, query string) []Item {
	q := Fold(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLen {
		return nil
	}

	type scored struct {
		score int
		title string
		item  Item
	}

	matches := make([]scored, 0, len(items))
	for _, it := range items {
		title := Fold(it.Title)
		score := 0
		switch {
		case strings.HasPrefix(title, q):
			score = scoreTitlePrefix
		case strings.Contains(title, q):
			score = scoreTitleSubstring
		case strings.Contains(Fold(it.Username), q):
			score = scoreUsername
		}
		if score == 0 {
			continue
		}
		matches = append(matches, scored{score: score, title: title, item: it})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].title < matches[j].title
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}

	out := make([]Item, len(matches))
	for i, m := range matches {
		out[i] = m.item
	}
	return out
}

// Fold normalizes to NFC and lowercases for comparison.
func Fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
