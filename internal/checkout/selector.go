/**
 * @description
 * This file contains the reward-selector state machine driving the pledge
 * checkout. It owns which reward tier is selected, the per-tier pledge-amount
 * inputs, minimum-value validation, and the hand-off to form submission. The
 * rendering layer feeds user events in and mirrors the visible state back out.
 *
 * Key features:
 * - Selecting a tier deselects the previous one, reveals its amount input and
 *   pre-fills it with the tier minimum when empty.
 * - Input is filtered to digits plus separators on every keystroke.
 * - Submit substitutes the tier minimum for an empty input, blocks values
 *   below the minimum with a visible error, and emits exactly one analytics
 *   event per accepted submission.
 * - With no tiers offered (free-pledge mode) the minimum falls back to the
 *   globally configured floor.
 *
 * @dependencies
 * - github.com/google/uuid: Tier identifiers.
 * - github.com/shopspring/decimal: Tier minimums and the canonical value.
 */

package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Analytics event vocabulary for the checkout funnel.
const (
	EventCategory       = "contribution_create"
	ActionStarted       = "contribution_started"
	ActionRewardChange  = "contribution_reward_change"
	ActionContinueClick = "contribution_continue_click"
	ActionInfoClick     = "contribution_info_click"
)

const (
	returnKeyCode     = 13
	groupingSeparator = '.'
	decimalSeparator  = ','
)

// ErrBelowMinimum blocks a submission whose value is under the selected
// tier's minimum. The selector keeps its error state visible until the user
// focuses the input again; re-submitting re-validates.
var ErrBelowMinimum = errors.New("pledge value below tier minimum")

// ErrUnknownTier is returned when an event references a tier the selector
// was not built with.
var ErrUnknownTier = errors.New("unknown reward tier")

// EventSink receives fire-and-forget analytics events.
type EventSink interface {
	Emit(ctx context.Context, category, action, label string, value int64)
}

// Submission is the prepared form hand-off: the selected tier (nil for a
// free pledge) and the canonical pledge value.
type Submission struct {
	RewardID *uuid.UUID
	Value    decimal.Decimal
}

// SubmitFunc delivers an accepted submission to the form target.
type SubmitFunc func(ctx context.Context, sub Submission) error

// Tier is the selector's view of a reward tier.
type Tier struct {
	ID           uuid.UUID
	MinimumValue decimal.Decimal
}

// tierState tracks the visible state of one tier row.
type tierState struct {
	tier         Tier
	input        string
	inputVisible bool
	errorState   bool
}

// Selector is the checkout state machine. It is single-threaded by contract:
// the UI event loop runs each handler to completion before the next event.
type Selector struct {
	tiers         []*tierState
	byID          map[uuid.UUID]*tierState
	selected      *tierState
	freePledge    tierState
	globalMinimum decimal.Decimal
	errorVisible  bool
	sink          EventSink
	submit        SubmitFunc
}

// NewSelector builds a selector over the project's offered tiers. An empty
// tier list puts the selector into free-pledge mode.
func NewSelector(tiers []Tier, globalMinimum decimal.Decimal, sink EventSink, submit SubmitFunc) *Selector {
	s := &Selector{
		byID:          make(map[uuid.UUID]*tierState, len(tiers)),
		globalMinimum: globalMinimum,
		sink:          sink,
		submit:        submit,
	}
	for _, tier := range tiers {
		state := &tierState{tier: tier}
		s.tiers = append(s.tiers, state)
		s.byID[tier.ID] = state
	}
	s.freePledge = tierState{tier: Tier{MinimumValue: globalMinimum}, inputVisible: true}
	return s
}

// Start marks the beginning of a checkout and emits the funnel-entry event
// labelled with the project id.
func (s *Selector) Start(ctx context.Context, projectID uuid.UUID) {
	s.emit(ctx, ActionStarted, projectID.String(), 0)
}

// SelectTier makes the given tier the selected one: the previous selection is
// cleared, the tier's amount input is revealed and pre-filled with the tier
// minimum when empty. Selecting the already-selected tier is a no-op.
func (s *Selector) SelectTier(ctx context.Context, tierID uuid.UUID) error {
	state, ok := s.byID[tierID]
	if !ok {
		return ErrUnknownTier
	}
	if s.selected == state {
		return nil
	}

	for _, other := range s.tiers {
		other.inputVisible = false
	}
	s.selected = state
	state.inputVisible = true

	minimum := s.minimumString()
	if state.input == "" {
		state.input = minimum
	}

	s.emit(ctx, ActionRewardChange, minimum, s.minimumUnits())
	return nil
}

// ClearOnFocus clears the selected tier's input and dismisses any visible
// validation error, mirroring the focus behavior of the amount field.
func (s *Selector) ClearOnFocus() {
	state := s.current()
	state.input = ""
	state.errorState = false
	s.errorVisible = false
}

// RestrictInput applies the keystroke filter to the selected tier's input:
// anything that is neither a digit nor a separator is dropped. The filter is
// idempotent; it never parses or reformats.
func (s *Selector) RestrictInput(raw string) {
	s.current().input = restrictChars(raw)
}

// InputValue returns the visible content of a tier's amount input.
func (s *Selector) InputValue(tierID uuid.UUID) string {
	if state, ok := s.byID[tierID]; ok {
		return state.input
	}
	return s.freePledge.input
}

// InputVisible reports whether a tier's amount input is revealed.
func (s *Selector) InputVisible(tierID uuid.UUID) bool {
	if state, ok := s.byID[tierID]; ok {
		return state.inputVisible
	}
	return false
}

// SelectedTier returns the selected tier id, or nil when nothing is selected
// or the selector is in free-pledge mode.
func (s *Selector) SelectedTier() *uuid.UUID {
	if s.selected == nil {
		return nil
	}
	id := s.selected.tier.ID
	return &id
}

// ErrorVisible reports whether the below-minimum error is currently shown.
func (s *Selector) ErrorVisible() bool {
	return s.errorVisible
}

// SubmitOnReturnKey triggers a submission when the key is the return key.
func (s *Selector) SubmitOnReturnKey(ctx context.Context, keyCode int) error {
	if keyCode != returnKeyCode {
		return nil
	}
	return s.Submit(ctx)
}

// Submit validates the selected tier's input and hands the prepared form to
// the submit target. An empty input is substituted with the tier minimum
// before validation. A value below the minimum marks the input with an error,
// reveals the error message and blocks the submission; correcting the value
// and re-submitting re-validates. Exactly one analytics event is emitted per
// accepted submission.
func (s *Selector) Submit(ctx context.Context) error {
	state := s.current()
	minimum := s.minimumString()

	userValue := stripGrouping(state.input)
	if userValue == "" {
		userValue = minimum
	}

	parsed := parseIntegerUnits(userValue)
	if parsed < s.minimumUnits() {
		state.errorState = true
		s.errorVisible = true
		return ErrBelowMinimum
	}

	state.errorState = false
	s.errorVisible = false

	s.emit(ctx, ActionContinueClick, minimum, s.minimumUnits())

	sub := Submission{Value: decimal.NewFromInt(parsed)}
	if s.selected != nil {
		id := s.selected.tier.ID
		sub.RewardID = &id
	}
	return s.submit(ctx, sub)
}

// MinimumValue returns the effective minimum: the selected tier's minimum, or
// the global floor with no selection (free-pledge mode included).
func (s *Selector) MinimumValue() decimal.Decimal {
	if s.selected != nil {
		return s.selected.tier.MinimumValue
	}
	return s.globalMinimum
}

func (s *Selector) current() *tierState {
	if s.selected != nil {
		return s.selected
	}
	return &s.freePledge
}

func (s *Selector) minimumString() string {
	return s.MinimumValue().Truncate(0).String()
}

func (s *Selector) minimumUnits() int64 {
	return s.MinimumValue().Truncate(0).IntPart()
}

func (s *Selector) emit(ctx context.Context, action, label string, value int64) {
	if s.sink == nil {
		return
	}
	s.sink.Emit(ctx, EventCategory, action, label, value)
}

// restrictChars keeps digits and separators, dropping everything else.
func restrictChars(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == groupingSeparator || r == decimalSeparator {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripGrouping removes thousands separators before parsing.
func stripGrouping(value string) string {
	return strings.ReplaceAll(value, string(groupingSeparator), "")
}

// parseIntegerUnits reads the leading digit run as an integer, truncating at
// the first non-digit. "150,50" parses as 150: sub-unit precision is dropped
// at the checkout boundary.
func parseIntegerUnits(value string) int64 {
	var n int64
	seen := false
	for _, r := range value {
		if r < '0' || r > '9' {
			break
		}
		seen = true
		n = n*10 + int64(r-'0')
	}
	if !seen {
		return 0
	}
	return n
}
