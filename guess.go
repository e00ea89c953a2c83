/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"strings"
)

// Verdict classifies how a chat message interacted with the game rules.
// Plain messages carry no game meaning and are broadcast untouched.
type Verdict string

const (
	VerdictPlain     Verdict = "plain"
	VerdictCorrect   Verdict = "correct"
	VerdictClose     Verdict = "close"
	VerdictIncorrect Verdict = "incorrect"
)

// HandleChat classifies an incoming chat-like message and applies its game
// effect, if any. Messages from spectating circumstances (match not
// started, sender not rostered, wrong team) pass through as plain chat.
// The describer's messages are screened for the secret word and its
// derivatives; a guesser's single-word messages are matched exactly, then
// fuzzily. A returned error means the message must not be broadcast as-is
// and is surfaced only to the sender.
func (g *Game) HandleChat(sessionID, senderID, text string) (Verdict, error) {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return VerdictPlain, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Started || s.Turn == nil || s.Word == "" {
		return VerdictPlain, nil
	}

	sender := s.participantLocked(senderID)
	if sender == nil {
		return VerdictPlain, nil
	}
	if sender.Team != s.Turn.Team {
		return VerdictPlain, nil
	}

	s.touchLocked()

	if senderID == s.Turn.DescriberID {
		return g.screenDescriptionLocked(s, text)
	}

	return g.classifyGuessLocked(s, sender, text)
}

// screenDescriptionLocked rejects a description that exposes the secret
// word, either verbatim or through a morphological derivative.
func (g *Game) screenDescriptionLocked(s *Session, text string) (Verdict, error) {
	if strings.EqualFold(strings.TrimSpace(text), s.Word) {
		return VerdictPlain, ruleViolation("the secret word may not be used in a description")
	}
	if token, found := containsDerivative(text, s.Word); found {
		return VerdictPlain, ruleViolation("%q gives away the secret word", token)
	}
	return VerdictPlain, nil
}

// classifyGuessLocked resolves a guesser's message: exact match scores and
// rotates the word, a near miss within the transposition-aware tolerance
// is flagged as close, anything else is simply incorrect.
func (g *Game) classifyGuessLocked(s *Session, sender *Participant, text string) (Verdict, error) {
	guess := normalizeWord(text)
	if guess == "" {
		return VerdictIncorrect, nil
	}
	if strings.Contains(guess, " ") {
		return VerdictPlain, invalidInput("a guess must be a single word")
	}

	word := normalizeWord(s.Word)

	if guess == word {
		if err := g.correctGuessLocked(s, sender); err != nil {
			return VerdictCorrect, err
		}
		return VerdictCorrect, nil
	}

	if len([]rune(guess)) >= minFuzzyGuessLen && damerauLevenshtein(guess, word) <= maxGuessDistance {
		return VerdictClose, nil
	}

	return VerdictIncorrect, nil
}
