package services_test

import (
	"errors"
	"strings"
	"testing"

	"labelsheet/internal/journal"
	"labelsheet/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "data-rows", "create", "batch 3", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, want := range []string{"data-rows", "create", "batch 3"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "annotations", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want journal.Status
	}{
		{services.Wrap(services.ErrConfiguration, "plan", "columns", "bad token", nil), journal.StatusReview},
		{services.Wrap(services.ErrValidation, "plan", "rows", "", nil), journal.StatusReview},
		{services.Wrap(services.ErrLookup, "encode", "index", "car", nil), journal.StatusReview},
		{services.Wrap(services.ErrTransient, "data-rows", "poll", "", nil), journal.StatusFailed},
		{services.Wrap(services.ErrTimeout, "data-rows", "poll", "", nil), journal.StatusFailed},
		{errors.New("plain"), journal.StatusFailed},
	}
	for _, tc := range cases {
		if got := services.FailureStatus(tc.err); got != tc.want {
			t.Fatalf("FailureStatus(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}
