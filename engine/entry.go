package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a credential record. Password, Notes and TOTP are secrets; they
// leave the process only through explicit secret-exposing operations.
type Entry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	URL       string `json:"url,omitempty"`
	Notes     string `json:"notes,omitempty"`
	IconURL   string `json:"icon_url,omitempty"`
	TOTP      string `json:"totp,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Preview is the only shape search results expose. No secrets.
type Preview struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username"`
	IconURL  string `json:"icon_url,omitempty"`
}

// Fields is the mutable part of an entry as supplied by add/update.
type Fields struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
	IconURL  string
	TOTP     string
}

// vaultData is the envelope plaintext.
type vaultData struct {
	Entries []Entry `json:"entries"`
}

func newEntry(f Fields, now time.Time) Entry {
	ts := now.Unix()
	return Entry{
		ID:        uuid.New().URN(),
		Title:     strings.TrimSpace(f.Title),
		Username:  f.Username,
		Password:  f.Password,
		URL:       f.URL,
		Notes:     f.Notes,
		IconURL:   f.IconURL,
		TOTP:      f.TOTP,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func (e *Entry) apply(f Fields, now time.Time) {
	e.Title = strings.TrimSpace(f.Title)
	e.Username = f.Username
	e.Password = f.Password
	e.URL = f.URL
	e.Notes = f.Notes
	e.IconURL = f.IconURL
	e.TOTP = f.TOTP

	// updated_at never moves backwards even if the wall clock does
	if ts := now.Unix(); ts > e.UpdatedAt {
		e.UpdatedAt = ts
	}
}

func (e *Entry) preview() Preview {
	return Preview{ID: e.ID, Title: e.Title, Username: e.Username, IconURL: e.IconURL}
}
