package main

import (
	"errors"
	"fmt"
	"testing"
)

func TestOperationalErrorCarriesCodeOne(t *testing.T) {
	wrapped := operationalError(errors.New("boom"))
	var ee *exitError
	if !asExitError(wrapped, &ee) {
		t.Fatal("expected asExitError to find an *exitError")
	}
	if ee.code != 1 {
		t.Errorf("code = %d, want 1", ee.code)
	}
}

func TestInternalErrorCarriesCodeTwo(t *testing.T) {
	wrapped := internalError(errors.New("boom"))
	var ee *exitError
	if !asExitError(wrapped, &ee) {
		t.Fatal("expected asExitError to find an *exitError")
	}
	if ee.code != 2 {
		t.Errorf("code = %d, want 2", ee.code)
	}
}

func TestOperationalErrorNilPassesThrough(t *testing.T) {
	if operationalError(nil) != nil {
		t.Error("operationalError(nil) should return nil")
	}
	if internalError(nil) != nil {
		t.Error("internalError(nil) should return nil")
	}
}

func TestAsExitErrorWalksUnwrapChain(t *testing.T) {
	inner := operationalError(errors.New("root cause"))
	outer := fmt.Errorf("context: %w", inner)

	var ee *exitError
	if !asExitError(outer, &ee) {
		t.Fatal("expected asExitError to unwrap through fmt.Errorf")
	}
	if ee.code != 1 {
		t.Errorf("code = %d, want 1", ee.code)
	}
}

func TestAsExitErrorFalseForPlainError(t *testing.T) {
	var ee *exitError
	if asExitError(errors.New("plain"), &ee) {
		t.Error("expected asExitError to return false for a non-exitError chain")
	}
}
