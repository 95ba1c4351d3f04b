/**
 * @description
 * FAQ box state for the checkout page: open/close toggling per question,
 * with an analytics event on each transition to open.
 */

package checkout

import (
	"context"
	"strings"
)

// FaqBox tracks which checkout FAQ questions are expanded.
type FaqBox struct {
	open map[string]bool
	sink EventSink
}

// NewFaqBox builds an FAQ box with every question collapsed.
func NewFaqBox(sink EventSink) *FaqBox {
	return &FaqBox{open: make(map[string]bool), sink: sink}
}

// ToggleQuestion flips a question between open and closed. Opening emits an
// info-click event labelled with the trimmed question text; closing is silent.
func (f *FaqBox) ToggleQuestion(ctx context.Context, questionID, questionText string) {
	f.open[questionID] = !f.open[questionID]
	if f.open[questionID] && f.sink != nil {
		f.sink.Emit(ctx, EventCategory, ActionInfoClick, strings.TrimSpace(questionText), 0)
	}
}

// Open reports whether a question is currently expanded.
func (f *FaqBox) Open(questionID string) bool {
	return f.open[questionID]
}
