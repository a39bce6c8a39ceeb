package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/colloquyhq/colloquy/pkg/domain"
	"github.com/colloquyhq/colloquy/pkg/ports"
)

// KeywordClassifier is a deterministic, rule-based classifier that makes the
// engine drivable from a terminal without any NLU service. It recognizes a
// small command vocabulary plus a few conventions:
//
//	cancel | stop | never mind      abandon the active flow
//	why                             ask why the awaited slot is needed
//	actually <slot>=<value>         correct a previously given value
//	change <slot> to <value>        modify a value on purpose
//	yes / no (while confirming)     answer the confirmation prompt
//	<flow name>                     start or switch to a flow
//	<slot>=<value> [...]            fill named slots
//	anything else                   fills the awaited slot, or digresses
type KeywordClassifier struct{}

// NewKeywordClassifier creates the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

var (
	cancelPhrases = []string{"cancel", "stop", "never mind", "nevermind", "forget it"}
	yesWords      = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "sure": true, "correct": true, "confirm": true, "ok": true, "okay": true}
	noWords       = map[string]bool{"no": true, "n": true, "nope": true, "nah": true, "wrong": true}
)

// Classify maps one line of user input onto a structured command. It never
// returns an error: unrecognized input degrades to filling the awaited slot
// or to a digression, both of which the engine handles safely.
func (c *KeywordClassifier) Classify(_ context.Context, userMessage string, snapshot ports.ConversationSnapshot) (domain.Command, error) {
	text := strings.TrimSpace(userMessage)
	if text == "" {
		return domain.Continuation{}, nil
	}
	lower := strings.ToLower(text)

	for _, phrase := range cancelPhrases {
		if lower == phrase {
			return domain.Cancellation{}, nil
		}
	}

	if lower == "why" || strings.HasPrefix(lower, "why ") {
		return domain.Clarification{TargetSlot: snapshot.AwaitedSlot}, nil
	}

	if rest, ok := strings.CutPrefix(lower, "actually "); ok {
		if name, value, found := strings.Cut(rest, "="); found {
			name = strings.TrimSpace(name)
			return domain.Correction{
				Name:     name,
				Value:    parseScalar(strings.TrimSpace(value)),
				Previous: snapshot.FilledSlots[name],
			}, nil
		}
	}

	if rest, ok := strings.CutPrefix(lower, "change "); ok {
		if name, value, found := strings.Cut(rest, " to "); found {
			name = strings.TrimSpace(name)
			return domain.Modification{
				Name:     name,
				Value:    parseScalar(strings.TrimSpace(value)),
				Previous: snapshot.FilledSlots[name],
			}, nil
		}
	}

	confirming := snapshot.Phase == domain.PhaseConfirming || snapshot.Phase == domain.PhaseReadyForConfirmation
	if confirming {
		if yesWords[lower] {
			return domain.ConfirmationAnswer{Decision: domain.ConfirmYes}, nil
		}
		if noWords[lower] {
			return domain.ConfirmationAnswer{Decision: domain.ConfirmNo}, nil
		}
	}

	if name, ok := matchFlowName(lower, snapshot.AvailableFlows); ok {
		return domain.IntentChange{FlowName: name}, nil
	}

	if slots := parseAssignments(text); len(slots) > 0 {
		previous := make(map[string]any)
		for name := range slots {
			if prev, ok := snapshot.FilledSlots[name]; ok {
				previous[name] = prev
			}
		}
		return domain.SlotValue{Slots: slots, Previous: previous}, nil
	}

	if confirming {
		return domain.ConfirmationAnswer{Decision: domain.ConfirmUnclear}, nil
	}

	if snapshot.AwaitedSlot != "" {
		return domain.SlotValue{Slots: map[string]any{snapshot.AwaitedSlot: parseScalar(text)}}, nil
	}

	return domain.Digression{Utterance: text}, nil
}

// matchFlowName reports whether the utterance names an available flow,
// matching either the raw name or its underscores-as-spaces form.
func matchFlowName(lower string, flows []ports.FlowInfo) (string, bool) {
	for _, f := range flows {
		spoken := strings.ReplaceAll(strings.ToLower(f.Name), "_", " ")
		if lower == strings.ToLower(f.Name) || lower == spoken {
			return f.Name, true
		}
	}
	return "", false
}

// parseAssignments extracts name=value pairs from an utterance. Returns nil
// unless every whitespace-separated token is an assignment, so ordinary
// sentences containing "=" are not misread.
func parseAssignments(text string) map[string]any {
	fields := strings.Fields(text)
	slots := make(map[string]any, len(fields))
	for _, field := range fields {
		name, value, found := strings.Cut(field, "=")
		if !found || name == "" || value == "" {
			return nil
		}
		slots[strings.ToLower(name)] = parseScalar(value)
	}
	return slots
}

// parseScalar coerces a textual value to bool or number where unambiguous.
func parseScalar(text string) any {
	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}
