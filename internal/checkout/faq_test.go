package checkout

import (
	"context"
	"testing"
)

func TestToggleQuestion_EmitsOnlyOnOpen(t *testing.T) {
	sink := &fakeSink{}
	box := NewFaqBox(sink)
	ctx := context.Background()

	box.ToggleQuestion(ctx, "q1", "  When will I be charged?  ")
	if !box.Open("q1") {
		t.Fatal("expected question opened")
	}
	if sink.countAction(ActionInfoClick) != 1 {
		t.Fatalf("expected one info-click event, got %d", sink.countAction(ActionInfoClick))
	}
	if sink.events[0].label != "When will I be charged?" {
		t.Fatalf("expected trimmed question text label, got %q", sink.events[0].label)
	}

	box.ToggleQuestion(ctx, "q1", "When will I be charged?")
	if box.Open("q1") {
		t.Fatal("expected question closed")
	}
	if sink.countAction(ActionInfoClick) != 1 {
		t.Fatal("closing a question must not emit an event")
	}

	box.ToggleQuestion(ctx, "q1", "When will I be charged?")
	if sink.countAction(ActionInfoClick) != 2 {
		t.Fatal("re-opening emits again")
	}
}
