package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Stats errors
	ErrStatsNotFound = errors.New("stats not found")

	// Mail errors
	ErrMailNotFound = errors.New("mail not found")

	// Discord errors
	ErrGuildNotFound   = errors.New("guild not found")
	ErrNoGuilds        = errors.New("no guilds registered")
	ErrAlreadyLinked   = errors.New("connection already linked")
	ErrLinkedElsewhere = errors.New("external account linked to another player")

	// Registry errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTokenExpired    = errors.New("token expired")
	ErrTooManyRequests = errors.New("too many requests")

	// Storage errors
	ErrConflict  = errors.New("conflicting concurrent update")
	ErrTransient = errors.New("transient storage failure")
	ErrInvariant = errors.New("post-update invariant violated")
)
