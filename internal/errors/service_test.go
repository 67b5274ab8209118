// internal/errors/service_test.go
package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(KindNetwork, "fetch page", fmt.Errorf("connection refused"))
	wrapped := fmt.Errorf("tour failed: %w", base)

	if KindOf(wrapped) != KindNetwork {
		t.Errorf("expected network kind, got %s", KindOf(wrapped))
	}
	if KindOf(fmt.Errorf("plain")) != KindUnknown {
		t.Error("plain errors should be unknown")
	}
}

func TestIsNested(t *testing.T) {
	inner := New(KindNetwork, "get", fmt.Errorf("timeout"))
	outer := New(KindFatal, "fetch tour", inner)

	if !Is(outer, KindFatal) || !Is(outer, KindNetwork) {
		t.Error("both kinds should be visible in the chain")
	}
	if Is(outer, KindConfig) {
		t.Error("config kind should not match")
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(KindFatal, "fetch tour", fmt.Errorf("status 500")).WithURL("https://x.test/tour")
	want := "fetch tour https://x.test/tour: status 500"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestService_GuardRecoversPanic(t *testing.T) {
	service := NewService()

	err := service.Guard("colour", func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})

	if err == nil {
		t.Fatal("expected error from panic")
	}
	if KindOf(err) != KindStructural {
		t.Errorf("expected structural kind, got %s", KindOf(err))
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("expected panic in message, got %s", err.Error())
	}
}

func TestService_GuardPassesThrough(t *testing.T) {
	service := NewService()
	want := fmt.Errorf("plain failure")

	if err := service.Guard("op", func() error { return want }); err != want {
		t.Errorf("expected passthrough error, got %v", err)
	}
	if err := service.Guard("op", func() error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestService_GetExitCode(t *testing.T) {
	service := NewService()

	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{New(KindConfig, "load", fmt.Errorf("bad")), 2},
		{New(KindNetwork, "get", fmt.Errorf("bad")), 3},
		{New(KindSemantic, "parse", fmt.Errorf("bad")), 4},
		{New(KindOutput, "write", fmt.Errorf("bad")), 5},
		{fmt.Errorf("other"), 1},
	}
	for _, tt := range tests {
		if got := service.GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestService_FormatErrorForCLI(t *testing.T) {
	err := New(KindConfig, "load config", fmt.Errorf("missing output.file"))

	quiet := NewService().FormatErrorForCLI(err)
	if !strings.Contains(quiet, "Configuration Error") {
		t.Errorf("unexpected output: %s", quiet)
	}
	if strings.Contains(quiet, "missing output.file") {
		t.Error("technical details should be hidden by default")
	}

	verbose := NewService().WithVerbose(true).FormatErrorForCLI(err)
	if !strings.Contains(verbose, "missing output.file") {
		t.Errorf("verbose output should include details: %s", verbose)
	}
}
