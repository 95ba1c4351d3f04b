package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type recordedEvent struct {
	category string
	action   string
	label    string
	value    int64
}

type fakeSink struct {
	events []recordedEvent
}

func (f *fakeSink) Emit(ctx context.Context, category, action, label string, value int64) {
	f.events = append(f.events, recordedEvent{category: category, action: action, label: label, value: value})
}

func (f *fakeSink) countAction(action string) int {
	n := 0
	for _, e := range f.events {
		if e.action == action {
			n++
		}
	}
	return n
}

type fakeForm struct {
	submissions []Submission
	err         error
}

func (f *fakeForm) submit(ctx context.Context, sub Submission) error {
	if f.err != nil {
		return f.err
	}
	f.submissions = append(f.submissions, sub)
	return nil
}

func newTestSelector(t *testing.T, minimums ...int64) (*Selector, []Tier, *fakeSink, *fakeForm) {
	t.Helper()
	tiers := make([]Tier, 0, len(minimums))
	for _, m := range minimums {
		tiers = append(tiers, Tier{ID: uuid.New(), MinimumValue: decimal.NewFromInt(m)})
	}
	sink := &fakeSink{}
	form := &fakeForm{}
	return NewSelector(tiers, decimal.NewFromInt(10), sink, form.submit), tiers, sink, form
}

func TestRestrictInput_KeepsOnlyDigitsAndSeparators(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain digits", raw: "150", want: "150"},
		{name: "grouping separator kept", raw: "1.500", want: "1.500"},
		{name: "decimal comma kept", raw: "150,50", want: "150,50"},
		{name: "letters dropped", raw: "1a5b0", want: "150"},
		{name: "currency prefix dropped", raw: "R$ 100", want: "100"},
		{name: "already clean is unchanged", raw: "1.500,00", want: "1.500,00"},
		{name: "empty stays empty", raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, tiers, _, _ := newTestSelector(t, 10)
			if err := selector.SelectTier(context.Background(), tiers[0].ID); err != nil {
				t.Fatalf("SelectTier returned error: %v", err)
			}
			selector.ClearOnFocus()

			selector.RestrictInput(tt.raw)
			got := selector.InputValue(tiers[0].ID)
			if got != tt.want {
				t.Fatalf("RestrictInput(%q) left input %q, want %q", tt.raw, got, tt.want)
			}

			// Idempotence: filtering the filtered value changes nothing.
			selector.RestrictInput(got)
			if again := selector.InputValue(tiers[0].ID); again != got {
				t.Fatalf("filter not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSelectTier_RevealsInputAndPrefillsMinimum(t *testing.T) {
	selector, tiers, sink, _ := newTestSelector(t, 25, 100)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[1].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}

	if selected := selector.SelectedTier(); selected == nil || *selected != tiers[1].ID {
		t.Fatal("expected second tier selected")
	}
	if !selector.InputVisible(tiers[1].ID) {
		t.Fatal("expected selected tier input revealed")
	}
	if selector.InputVisible(tiers[0].ID) {
		t.Fatal("expected other tier inputs hidden")
	}
	if got := selector.InputValue(tiers[1].ID); got != "100" {
		t.Fatalf("expected empty input pre-filled with minimum, got %q", got)
	}
	if sink.countAction(ActionRewardChange) != 1 {
		t.Fatalf("expected one reward-change event, got %d", sink.countAction(ActionRewardChange))
	}
}

func TestSelectTier_SwitchKeepsTypedValueAndHidesPrevious(t *testing.T) {
	selector, tiers, _, _ := newTestSelector(t, 25, 100)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	selector.ClearOnFocus()
	selector.RestrictInput("60")

	if err := selector.SelectTier(ctx, tiers[1].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	if selector.InputVisible(tiers[0].ID) {
		t.Fatal("expected previous tier input hidden")
	}

	// Returning to the first tier: its non-empty input is not overwritten.
	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	if got := selector.InputValue(tiers[0].ID); got != "60" {
		t.Fatalf("expected typed value preserved, got %q", got)
	}
}

func TestSelectTier_Idempotent(t *testing.T) {
	selector, tiers, sink, _ := newTestSelector(t, 50)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	eventsAfterFirst := len(sink.events)
	valueAfterFirst := selector.InputValue(tiers[0].ID)

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("re-selecting returned error: %v", err)
	}

	if len(sink.events) != eventsAfterFirst {
		t.Fatal("re-selecting the selected tier must not emit events")
	}
	if selector.InputValue(tiers[0].ID) != valueAfterFirst {
		t.Fatal("re-selecting the selected tier must not change the input")
	}
	if !selector.InputVisible(tiers[0].ID) {
		t.Fatal("selected tier input must stay visible")
	}
}

func TestSelectTier_UnknownTier(t *testing.T) {
	selector, _, _, _ := newTestSelector(t, 50)
	if err := selector.SelectTier(context.Background(), uuid.New()); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestSubmit_EmptyInputSubstitutesMinimum(t *testing.T) {
	selector, tiers, sink, form := newTestSelector(t, 100)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	selector.ClearOnFocus()

	if err := selector.Submit(ctx); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if len(form.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(form.submissions))
	}
	sub := form.submissions[0]
	if !sub.Value.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected value 100, got %s", sub.Value)
	}
	if sub.RewardID == nil || *sub.RewardID != tiers[0].ID {
		t.Fatal("expected submission to carry the selected tier")
	}
	if selector.ErrorVisible() {
		t.Fatal("expected no error for minimum substitution")
	}
	if sink.countAction(ActionContinueClick) != 1 {
		t.Fatalf("expected exactly one continue event, got %d", sink.countAction(ActionContinueClick))
	}
}

func TestSubmit_BelowMinimumBlocksAndShowsError(t *testing.T) {
	selector, tiers, sink, form := newTestSelector(t, 100)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	selector.ClearOnFocus()
	selector.RestrictInput("50")

	if err := selector.Submit(ctx); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}

	if len(form.submissions) != 0 {
		t.Fatal("below-minimum value must not be submitted")
	}
	if !selector.ErrorVisible() {
		t.Fatal("expected error state shown")
	}
	if sink.countAction(ActionContinueClick) != 0 {
		t.Fatal("blocked submission must not emit the continue event")
	}
}

func TestSubmit_RetryRevalidatesWithoutDoubleSubmit(t *testing.T) {
	selector, tiers, sink, form := newTestSelector(t, 100)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	selector.ClearOnFocus()
	selector.RestrictInput("50")

	if err := selector.Submit(ctx); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	// Submitting again with the same bad value re-validates and stays blocked.
	if err := selector.Submit(ctx); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected repeated ErrBelowMinimum, got %v", err)
	}

	selector.ClearOnFocus()
	if selector.ErrorVisible() {
		t.Fatal("focusing the input must clear the error display")
	}
	selector.RestrictInput("150")

	if err := selector.Submit(ctx); err != nil {
		t.Fatalf("corrected submission returned error: %v", err)
	}
	if len(form.submissions) != 1 {
		t.Fatalf("expected a single submission after correction, got %d", len(form.submissions))
	}
	if !form.submissions[0].Value.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("expected corrected value 150, got %s", form.submissions[0].Value)
	}
	if sink.countAction(ActionContinueClick) != 1 {
		t.Fatalf("expected exactly one continue event, got %d", sink.countAction(ActionContinueClick))
	}
}

func TestSubmit_StripsGroupingAndTruncatesDecimals(t *testing.T) {
	tests := []struct {
		name  string
		typed string
		want  int64
	}{
		{name: "grouped thousands", typed: "1.500", want: 1500},
		{name: "decimal comma truncated", typed: "150,90", want: 150},
		{name: "grouped with decimals", typed: "2.500,75", want: 2500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selector, tiers, _, form := newTestSelector(t, 100)
			ctx := context.Background()

			if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
				t.Fatalf("SelectTier returned error: %v", err)
			}
			selector.ClearOnFocus()
			selector.RestrictInput(tt.typed)

			if err := selector.Submit(ctx); err != nil {
				t.Fatalf("Submit returned error: %v", err)
			}
			if len(form.submissions) != 1 {
				t.Fatalf("expected one submission, got %d", len(form.submissions))
			}
			if !form.submissions[0].Value.Equal(decimal.NewFromInt(tt.want)) {
				t.Fatalf("expected value %d, got %s", tt.want, form.submissions[0].Value)
			}
		})
	}
}

func TestSubmit_FreePledgeFallsBackToGlobalMinimum(t *testing.T) {
	sink := &fakeSink{}
	form := &fakeForm{}
	selector := NewSelector(nil, decimal.NewFromInt(10), sink, form.submit)
	ctx := context.Background()

	if got := selector.MinimumValue(); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected global minimum fallback, got %s", got)
	}

	if err := selector.Submit(ctx); err != nil {
		t.Fatalf("free-pledge submit returned error: %v", err)
	}
	if len(form.submissions) != 1 {
		t.Fatalf("expected one submission, got %d", len(form.submissions))
	}
	sub := form.submissions[0]
	if sub.RewardID != nil {
		t.Fatal("free pledge must not carry a reward")
	}
	if !sub.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected global minimum substituted, got %s", sub.Value)
	}
}

func TestSubmitOnReturnKey(t *testing.T) {
	selector, tiers, _, form := newTestSelector(t, 10)
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}

	if err := selector.SubmitOnReturnKey(ctx, 65); err != nil {
		t.Fatalf("non-return key returned error: %v", err)
	}
	if len(form.submissions) != 0 {
		t.Fatal("non-return key must not submit")
	}

	if err := selector.SubmitOnReturnKey(ctx, 13); err != nil {
		t.Fatalf("return key submit returned error: %v", err)
	}
	if len(form.submissions) != 1 {
		t.Fatalf("expected return key to submit, got %d submissions", len(form.submissions))
	}
}

func TestSubmit_PropagatesFormError(t *testing.T) {
	selector, tiers, _, form := newTestSelector(t, 10)
	form.err = errors.New("persistence down")
	ctx := context.Background()

	if err := selector.SelectTier(ctx, tiers[0].ID); err != nil {
		t.Fatalf("SelectTier returned error: %v", err)
	}
	if err := selector.Submit(ctx); err == nil {
		t.Fatal("expected form error to propagate")
	}
}
