package workflow

import "strings"

// Classification is the routing decision derived from the latest step's
// output. Free-text interpretation happens in exactly one place
// (interpretClassification); the router itself is a pure function over this
// type.
type Classification int

const (
	// ClassifyNone means the step produced no explicit routing signal.
	ClassifyNone Classification = iota
	// ClassifyToolCall approves execution of a well-formed tool invocation.
	ClassifyToolCall
	// ClassifyRetry sends the analyst back around with corrective feedback.
	ClassifyRetry
	// ClassifyFinal accepts the latest output as the terminating answer.
	ClassifyFinal
	// ClassifyContinue routes back to reasoning without feedback.
	ClassifyContinue
	// ClassifyUnknown is the fallback when the reviewer's text matched no
	// known marker.
	ClassifyUnknown
)

// interpretClassification maps the reviewer's free-text verdict onto the
// classification type. The reviewer emits uppercase markers; matching is
// substring-based because the surrounding prose is model-generated and
// unreliable.
func interpretClassification(verdict string) Classification {
	v := strings.ToUpper(verdict)
	switch {
	case strings.Contains(v, "VALID_TOOL") && !strings.Contains(v, "INVALID_TOOL"):
		return ClassifyToolCall
	case strings.Contains(v, "INVALID_TOOL"), strings.Contains(v, "FEEDBACK"), strings.Contains(v, "RETRY"):
		return ClassifyRetry
	case strings.Contains(v, "FINAL"):
		return ClassifyFinal
	case strings.Contains(v, "CONTINUE"):
		return ClassifyContinue
	default:
		return ClassifyUnknown
	}
}

// resolveReview turns a reviewer classification plus the analyst's raw output
// into a final routing decision, applying the fallback chain for unrecognized
// verdicts. By default an explicit classification wins over sentinel detection
// in the raw content; sentinelFirst flips that order.
func resolveReview(class Classification, analystText string, sentinelFirst bool) Classification {
	if sentinelFirst && HasSentinel(analystText) {
		return ClassifyFinal
	}
	switch class {
	case ClassifyToolCall, ClassifyRetry, ClassifyContinue:
		return class
	case ClassifyFinal:
		return ClassifyFinal
	}
	// Unrecognized verdict: fall back to sentinel, then to anything that
	// still parses as a tool call, then give up and terminate.
	if HasSentinel(analystText) {
		return ClassifyFinal
	}
	if looksLikeAction(analystText) {
		return ClassifyToolCall
	}
	return ClassifyFinal
}

// Route is the state machine's transition table: a pure function of the
// current control value, the latest classification and the iteration count.
// It must never call a model or a tool.
func Route(control string, class Classification, iterations, maxIterations int) string {
	if iterations >= maxIterations {
		return StepTerminal
	}
	switch control {
	case StepReasoning:
		return StepReview
	case StepReview:
		switch class {
		case ClassifyToolCall:
			return StepTools
		case ClassifyRetry, ClassifyContinue:
			return StepReasoning
		default:
			return StepTerminal
		}
	case StepTools:
		return StepReasoning
	default:
		return StepTerminal
	}
}

// RouteParsed is the transition table for the variant without a review model:
// the action parser alone decides where the analyst's output goes.
func RouteParsed(analystText string, iterations, maxIterations int) string {
	if iterations >= maxIterations {
		return StepTerminal
	}
	if looksLikeAction(analystText) {
		return StepTools
	}
	if HasSentinel(analystText) {
		return StepTerminal
	}
	if strings.Contains(analystText, "{") {
		// Tool-call shaped but unparseable: corrective notice, retry.
		return StepReasoning
	}
	return StepTerminal
}
