// Package moderation decides the moderation status of a comment body. It
// screens text against the configured banned and suspect wordlists, detects
// hyperlinks, and maps those findings plus the moderation mode onto one of
// the comment statuses.
//
// Everything in this package is pure: callers pass an immutable Settings
// snapshot and get the same answer for the same input.
package moderation
