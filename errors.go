/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"fmt"
	"log"
	"time"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// ErrorKind is the closed set of failure conditions the game engine can
// signal. The transport layer translates a kind exactly once, at the
// websocket boundary, into the error event the client expects.
type ErrorKind string

const (
	// Unknown session or participant id.
	KindNotFound ErrorKind = "not_found"
	// Duplicate session name, or participant already connected.
	KindConflict ErrorKind = "conflict"
	// Wrong turn, not the describer, derivative word used, game already
	// started, too few players, no skips left.
	KindRuleViolation ErrorKind = "rule_violation"
	// Malformed message, multi-word guess.
	KindInvalidInput ErrorKind = "invalid_input"
)

// GameError carries a kind and a user-facing message. All conditions are
// detected synchronously before any mutation; none call for a retry.
type GameError struct {
	Kind    ErrorKind
	Message string
}

func (e *GameError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func notFound(format string, args ...any) *GameError {
	return &GameError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *GameError {
	return &GameError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func ruleViolation(format string, args ...any) *GameError {
	return &GameError{Kind: KindRuleViolation, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) *GameError {
	return &GameError{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// errKind extracts the kind from err, defaulting to a rule violation so
// unexpected engine errors still reach only the offending client.
func errKind(err error) ErrorKind {
	if ge, ok := err.(*GameError); ok {
		return ge.Kind
	}
	return KindRuleViolation
}
