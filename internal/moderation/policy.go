package moderation

import "fmt"

// Input is everything Evaluate looks at. It is built from one settings
// snapshot and one analysis of the body.
type Input struct {
	Mode              Mode
	Prior             Status
	Classification    Classification
	HasLink           bool
	PremodLinksEnable bool
}

// Evaluate maps a reviewed body onto a moderation status.
//
// Pre-moderation wins over every other rule. Under post-moderation a banned
// term rejects, a link queues for review when link pre-moderation is on, and
// otherwise the comment is published. Evaluate never assigns ACCEPTED on its
// own: see acceptedIsSticky.
//
// An unknown mode is a programming error and panics.
func Evaluate(in Input) Status {
	switch in.Mode {
	case ModePre:
		return StatusPremod
	case ModePost:
		if in.Classification.MatchedBanned {
			return StatusRejected
		}
		if in.PremodLinksEnable && in.HasLink {
			return StatusPremod
		}
		if acceptedIsSticky(in.Prior) {
			return StatusAccepted
		}
		return StatusNone
	default:
		panic(fmt.Sprintf("moderation: unknown mode %q", in.Mode))
	}
}

// acceptedIsSticky holds that a moderator's acceptance survives an edit
// unless the new body trips a rule. It is only consulted after every flag
// rule has passed.
func acceptedIsSticky(prior Status) bool {
	return prior == StatusAccepted
}

// Review runs the wordlist filter and link detector over text and evaluates
// the result against settings. prior is the comment's status before the
// change, StatusNone for a new comment.
func Review(text string, prior Status, settings Settings) Decision {
	return NewReviewer(settings).Review(text, prior)
}

// Reviewer binds a compiled matcher to one settings snapshot.
type Reviewer struct {
	settings Settings
	matcher  *Matcher
}

// NewReviewer compiles the snapshot's wordlist once.
func NewReviewer(settings Settings) *Reviewer {
	return &Reviewer{
		settings: settings,
		matcher:  NewMatcher(settings.Wordlist),
	}
}

// Review is the bound form of the package-level Review.
func (r *Reviewer) Review(text string, prior Status) Decision {
	cls := r.matcher.Classify(text)
	hasLink := ContainsLink(text)

	status := Evaluate(Input{
		Mode:              r.settings.Mode,
		Prior:             prior,
		Classification:    cls,
		HasLink:           hasLink,
		PremodLinksEnable: r.settings.PremodLinksEnable,
	})

	var flags []Flag
	if cls.MatchedBanned {
		flags = append(flags, FlagBannedWord)
	}
	if cls.MatchedSuspect {
		flags = append(flags, FlagSuspectWord)
	}
	if hasLink && r.settings.PremodLinksEnable {
		flags = append(flags, FlagLinks)
	}

	return Decision{
		Status:         status,
		Classification: cls,
		HasLink:        hasLink,
		Flags:          flags,
	}
}
