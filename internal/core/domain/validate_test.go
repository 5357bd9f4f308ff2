package domain

import (
	"errors"
	"testing"
)

func TestValidateRepositoryURL(t *testing.T) {
	valid := []string{
		"https://example.com/r.git",
		"https://github.com/org/repo",
		"git://example.com/r.git",
	}
	for _, u := range valid {
		if err := ValidateRepositoryURL(u); err != nil {
			t.Errorf("ValidateRepositoryURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"http://example.com/r.git",
		"file:///etc/passwd",
		"ssh://git@example.com/r.git",
		"https://example.com/r.git\nRUN rm -rf /",
		"https://example.com/r.git && curl evil",
		"https://example.com/$(id)",
		"https:///no-host",
	}
	for _, u := range invalid {
		err := ValidateRepositoryURL(u)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ValidateRepositoryURL(%q) = %v, want ErrInvalidInput", u, err)
		}
	}
}

func TestValidateStartCommand(t *testing.T) {
	if err := ValidateStartCommand(`python bot.py --name "x y"`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStartCommand("python bot.py\nRUN evil"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("multi-line command: got %v, want ErrInvalidInput", err)
	}
}

func TestExitCode(t *testing.T) {
	err := &ExitError{Op: "build", Code: 2}
	wrapped := errors.Join(errors.New("context"), err)
	if got := ExitCode(wrapped); got != 2 {
		t.Errorf("ExitCode = %d, want 2", got)
	}
	if got := ExitCode(errors.New("plain")); got != -1 {
		t.Errorf("ExitCode(plain) = %d, want -1", got)
	}
}
