// Package health analyzes the password hygiene of a vault: per-password
// strength, reuse across entries, and breached-credential lookup over the
// k-anonymity range protocol. Everything here works on in-memory snapshots;
// nothing is persisted.
package health

import (
	"math"
	"sort"
)

// Score buckets for entropy bits.
const (
	entropyWeak   = 28
	entropyFair   = 36
	entropyStrong = 60
	entropyBest   = 80
)

// minStrongLen caps anything shorter at score 0.
const minStrongLen = 8

var labels = [...]string{"Very Weak", "Weak", "Fair", "Strong", "Very Strong"}

// Credential is the health view of an entry: identity plus the plaintext
// password. Snapshots are taken under the engine lock and never retained.
type Credential struct {
	EntryID  string
	Title    string
	Username string
	Password string
}

// Strength is the analysis of a single password.
type Strength struct {
	Score       int     `json:"score"`
	EntropyBits float64 `json:"entropy"`
	Label       string  `json:"label"`
}

// Analyze estimates password strength as length times the bit width of the
// alphabet the password actually draws from: 26 lower + 26 upper + 10
// digits + 32 common symbols, counting only classes present. Passwords
// under 8 characters score 0 regardless of entropy.
func Analyze(password string) Strength {
	var lower, upper, digit, symbol bool
	length := 0
	for _, r := range password {
		length++
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}

	alphabet := 0
	if lower {
		alphabet += 26
	}
	if upper {
		alphabet += 26
	}
	if digit {
		alphabet += 10
	}
	if symbol {
		alphabet += 32
	}

	var entropy float64
	if alphabet > 0 {
		entropy = float64(length) * math.Log2(float64(alphabet))
	}

	score := 0
	switch {
	case entropy < entropyWeak:
		score = 0
	case entropy < entropyFair:
		score = 1
	case entropy < entropyStrong:
		score = 2
	case entropy < entropyBest:
		score = 3
	default:
		score = 4
	}
	if length < minStrongLen {
		score = 0
	}

	return Strength{Score: score, EntropyBits: entropy, Label: labels[score]}
}

// WeakEntry is an entry whose password scored 1 or below.
type WeakEntry struct {
	EntryID     string  `json:"entry_id"`
	Title       string  `json:"title"`
	Username    string  `json:"username"`
	Score       int     `json:"score"`
	EntropyBits float64 `json:"entropy"`
	Label       string  `json:"label"`
}

// Weak returns entries with score <= 1, weakest (lowest entropy) first.
func Weak(creds []Credential) []WeakEntry {
	var out []WeakEntry
	for _, c := range creds {
		s := Analyze(c.Password)
		if s.Score > 1 {
			continue
		}
		out = append(out, WeakEntry{
			EntryID:     c.EntryID,
			Title:       c.Title,
			Username:    c.Username,
			Score:       s.Score,
			EntropyBits: s.EntropyBits,
			Label:       s.Label,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntropyBits < out[j].EntropyBits
	})
	return out
}

// GroupEntry identifies one entry inside a reuse group.
type GroupEntry struct {
	EntryID  string `json:"entry_id"`
	Title    string `json:"title"`
	Username string `json:"username"`
}

// ReusedGroup is a password shared by two or more entries.
type ReusedGroup struct {
	Password string       `json:"password"`
	Entries  []GroupEntry `json:"entries"`
	Count    int          `json:"count"`
}

// Reused groups entries by identical password and returns every group with
// two or more members, largest group first. Empty passwords are excluded.
func Reused(creds []Credential) []ReusedGroup {
	byPassword := make(map[string][]GroupEntry)
	order := make([]string, 0)
	for _, c := range creds {
		if c.Password == "" {
			continue
		}
		if _, seen := byPassword[c.Password]; !seen {
			order = append(order, c.Password)
		}
		byPassword[c.Password] = append(byPassword[c.Password], GroupEntry{
			EntryID:  c.EntryID,
			Title:    c.Title,
			Username: c.Username,
		})
	}

	var out []ReusedGroup
	for _, password := range order {
		entries := byPassword[password]
		if len(entries) < 2 {
			continue
		}
		out = append(out, ReusedGroup{Password: password, Entries: entries, Count: len(entries)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Report is the aggregate produced by check_vault_health.
type Report struct {
	OverallScore        int                  `json:"overall_score"`
	WeakPasswords       []WeakEntry          `json:"weak_passwords"`
	ReusedPasswords     []ReusedGroup        `json:"reused_passwords"`
	BreachedCredentials []BreachedCredential `json:"breached_credentials"`
	TotalEntries        int                  `json:"total_entries"`
	StrongPasswords     int                  `json:"strong_passwords"`
	AverageEntropy      float64              `json:"average_entropy"`
	BreachUnknown       bool                 `json:"breach_check_unavailable,omitempty"`
}

// Compose assembles the report and derives the 0..100 overall score:
// strong_frac*70 + (1-reused_frac)*15 + (1-breached_frac)*15, rounded.
// An empty vault scores 100. When the breach check was unavailable, entries
// whose range could not be fetched count as not breached rather than
// failing the report; breaches found in fetched ranges still count.
func Compose(creds []Credential, weak []WeakEntry, reused []ReusedGroup, breached []BreachedCredential, breachUnknown bool) Report {
	total := len(creds)

	report := Report{
		WeakPasswords:       weak,
		ReusedPasswords:     reused,
		BreachedCredentials: breached,
		TotalEntries:        total,
		StrongPasswords:     total - len(weak),
		BreachUnknown:       breachUnknown,
	}

	if total == 0 {
		report.OverallScore = 100
		return report
	}

	var totalEntropy float64
	for _, c := range creds {
		totalEntropy += Analyze(c.Password).EntropyBits
	}
	report.AverageEntropy = totalEntropy / float64(total)

	reusedEntries := 0
	for _, g := range reused {
		reusedEntries += g.Count
	}

	strongFrac := float64(total-len(weak)) / float64(total)
	reusedFrac := float64(reusedEntries) / float64(total)
	breachedFrac := float64(len(breached)) / float64(total)

	report.OverallScore = int(math.Round(strongFrac*70 + (1-reusedFrac)*15 + (1-breachedFrac)*15))
	return report
}
