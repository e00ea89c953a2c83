package main

import (
	"errors"
	"testing"
)

func TestGameErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{notFound("no session %q", "x"), KindNotFound},
		{conflict("name taken"), KindConflict},
		{ruleViolation("not your turn"), KindRuleViolation},
		{invalidInput("one word only"), KindInvalidInput},
		{errors.New("plumbing failure"), KindRuleViolation},
	}

	for _, tc := range cases {
		if got := errKind(tc.err); got != tc.want {
			t.Errorf("errKind(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestGameErrorMessage(t *testing.T) {
	err := notFound("unknown session %q", "abc")
	want := `not_found: unknown session "abc"`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
