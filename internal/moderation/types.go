package moderation

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Mode selects how new and edited comments are published.
type Mode string

const (
	// ModePre holds every comment for review before it becomes visible.
	ModePre Mode = "PRE"
	// ModePost publishes immediately unless a rule flags the comment.
	ModePost Mode = "POST"
)

// ParseMode parses a case-insensitive mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModePre:
		return ModePre, nil
	case ModePost:
		return ModePost, nil
	}
	return "", fmt.Errorf("moderation: unknown mode %q", s)
}

// Status is the moderation state of a comment.
type Status string

const (
	StatusNone     Status = "NONE"     // published, never reviewed
	StatusPremod   Status = "PREMOD"   // waiting in the moderation queue
	StatusAccepted Status = "ACCEPTED" // approved by a moderator
	StatusRejected Status = "REJECTED" // hidden by a rule or a moderator
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPremod, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Visible reports whether a comment in this status is shown to readers.
func (s Status) Visible() bool {
	return s == StatusNone || s == StatusAccepted
}

// Flag names a rule that fired while reviewing a body.
type Flag string

const (
	FlagBannedWord  Flag = "BANNED_WORD"
	FlagSuspectWord Flag = "SUSPECT_WORD"
	FlagLinks       Flag = "LINKS"
)

// Wordlist holds the configured banned and suspect terms.
type Wordlist struct {
	Banned  []string `json:"banned"`
	Suspect []string `json:"suspect"`
}

// Settings is a read-only snapshot of the moderation configuration. It is
// loaded once per evaluation and never mutated by this package.
type Settings struct {
	Mode              Mode          `json:"moderation"`
	Wordlist          Wordlist      `json:"wordlist"`
	PremodLinksEnable bool          `json:"premodLinksEnable"`
	EditWindow        time.Duration `json:"editWindow"` // 0 means edits are never time-limited
}

// DefaultSettings mirrors a freshly initialised installation: post-moderation,
// empty wordlists, links allowed, no edit window.
func DefaultSettings() Settings {
	return Settings{Mode: ModePost}
}

// Clone returns a deep copy so the snapshot cannot be changed through shared
// slices.
func (s Settings) Clone() Settings {
	s.Wordlist = Wordlist{
		Banned:  slices.Clone(s.Wordlist.Banned),
		Suspect: slices.Clone(s.Wordlist.Suspect),
	}
	return s
}

// Validate checks that the snapshot can be evaluated.
func (s Settings) Validate() error {
	if s.Mode != ModePre && s.Mode != ModePost {
		return fmt.Errorf("moderation: unknown mode %q", s.Mode)
	}
	if s.EditWindow < 0 {
		return fmt.Errorf("moderation: negative edit window %s", s.EditWindow)
	}
	return nil
}

// Classification is the wordlist verdict for a piece of text.
type Classification struct {
	MatchedBanned  bool
	MatchedSuspect bool
	BannedTerm     string // first banned term found, for logging
	SuspectTerm    string // first suspect term found, for logging
}

// Decision is the full review outcome for a body.
type Decision struct {
	Status         Status
	Classification Classification
	HasLink        bool
	Flags          []Flag
}
