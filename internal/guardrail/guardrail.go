// Package guardrail implements ContentGuardrail (§4.7): pure, no-I/O
// filtering of inbound user text and outbound generated text for the
// AI-augmented ChannelRouter path.
package guardrail

import (
	"html"
	"regexp"
	"strings"
)

// Risk is the closed risk taxonomy.
type Risk string

const (
	RiskSafe    Risk = "safe"
	RiskLow     Risk = "low"
	RiskMedium  Risk = "medium"
	RiskHigh    Risk = "high"
	RiskBlocked Risk = "blocked"
)

var riskOrder = map[Risk]int{
	RiskSafe:    0,
	RiskLow:     1,
	RiskMedium:  2,
	RiskHigh:    3,
	RiskBlocked: 4,
}

// atLeast reports whether r is at least as severe as other.
func (r Risk) atLeast(other Risk) bool { return riskOrder[r] >= riskOrder[other] }

// Violation names one detected policy violation.
type Violation string

const (
	ViolationPromptInjection Violation = "prompt-injection"
	ViolationMaliciousURL    Violation = "malicious-url"
	ViolationProfanity       Violation = "profanity"
	ViolationSpam            Violation = "spam"
	ViolationPIIExposure     Violation = "pii-exposure"
	ViolationBrandSafety     Violation = "brand-safety"
	ViolationOffTopic        Violation = "off-topic"
)

// Result is the outcome of a filter pass.
type Result struct {
	Risk        Risk
	Violations  []Violation
	SanitizedText string
	Reason      string
}

// Blocked reports whether this result should short-circuit the pipeline.
func (r Result) Blocked() bool { return r.Risk == RiskBlocked }

var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(previous|all|above)\s+instructions`),
	regexp.MustCompile(`(?i)you are now`),
	regexp.MustCompile(`(?i)jailbreak`),
	regexp.MustCompile(`(?i)bypass filter`),
}

var knownShorteners = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true, "is.gd": true,
}

var urlPattern = regexp.MustCompile(`https?://([a-zA-Z0-9.-]+)`)

var ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
var creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
var phonePattern = regexp.MustCompile(`\b\+?[1-9]\d{7,14}\b`)

var offTopicPattern = regexp.MustCompile(`(?i)(casino|jackpot|crypto presale|buy bitcoin now|guaranteed returns)`)
var profanityPattern = regexp.MustCompile(`(?i)\b(damn|hell|crap)\b`)
var spamPattern = regexp.MustCompile(`(?i)(act now|limited time offer|click here immediately|free money)`)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Guardrail evaluates text against the detection rules in §4.7, with
// behavior tuned by StrictMode: when true, Medium-and-above risk rejects;
// when false, only Blocked does.
type Guardrail struct {
	StrictMode bool
}

// New constructs a Guardrail with the given strict-mode setting.
func New(strictMode bool) *Guardrail {
	return &Guardrail{StrictMode: strictMode}
}

// FilterInput applies the input filter to incoming user text, before it is
// handed to the content-transformation agent. HTML-bearing input is
// escaped rather than rejected.
func (g *Guardrail) FilterInput(text string) Result {
	violations := detectViolations(text)
	risk := worstRisk(violations)
	sanitized := html.EscapeString(text)

	if g.rejects(risk) {
		return Result{Risk: RiskBlocked, Violations: violations, Reason: blockReason(violations)}
	}
	return Result{Risk: risk, Violations: violations, SanitizedText: sanitized}
}

// FilterOutput applies the output filter to every piece of AI-generated
// text before it reaches a ChannelAdapter. HTML in generated output is
// stripped rather than escaped, since it is meant for direct channel
// rendering, not redisplay as markup.
func (g *Guardrail) FilterOutput(text string) Result {
	stripped := htmlTagPattern.ReplaceAllString(text, "")
	violations := detectViolations(stripped)
	risk := worstRisk(violations)

	if g.rejects(risk) {
		return Result{
			Risk:          RiskBlocked,
			Violations:    violations,
			SanitizedText: "This message could not be delivered as written.",
			Reason:        blockReason(violations),
		}
	}
	return Result{Risk: risk, Violations: violations, SanitizedText: stripped}
}

func (g *Guardrail) rejects(risk Risk) bool {
	if g.StrictMode {
		return risk.atLeast(RiskMedium)
	}
	return risk.atLeast(RiskBlocked)
}

func detectViolations(text string) []Violation {
	var violations []Violation

	for _, p := range promptInjectionPatterns {
		if p.MatchString(text) {
			violations = append(violations, ViolationPromptInjection)
			break
		}
	}

	for _, m := range urlPattern.FindAllStringSubmatch(text, -1) {
		if knownShorteners[strings.ToLower(m[1])] {
			violations = append(violations, ViolationMaliciousURL)
			break
		}
	}

	if ssnPattern.MatchString(text) || creditCardPattern.MatchString(text) || phonePattern.MatchString(text) {
		violations = append(violations, ViolationPIIExposure)
	}

	if offTopicPattern.MatchString(text) {
		violations = append(violations, ViolationOffTopic)
	}

	if spamPattern.MatchString(text) {
		violations = append(violations, ViolationSpam)
	}

	if profanityPattern.MatchString(text) {
		violations = append(violations, ViolationProfanity)
	}

	return violations
}

// worstRisk maps the detected violations onto the closed risk taxonomy per
// the detection rules table in §4.7.
func worstRisk(violations []Violation) Risk {
	risk := RiskSafe
	for _, v := range violations {
		var r Risk
		switch v {
		case ViolationPromptInjection:
			r = RiskBlocked
		case ViolationPIIExposure:
			r = RiskHigh
		case ViolationMaliciousURL:
			r = RiskHigh
		case ViolationOffTopic:
			r = RiskMedium
		case ViolationSpam, ViolationProfanity, ViolationBrandSafety:
			r = RiskLow
		default:
			r = RiskLow
		}
		if r.atLeast(risk) {
			risk = r
		}
	}
	return risk
}

func blockReason(violations []Violation) string {
	if len(violations) == 0 {
		return "blocked"
	}
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
