package policy

import "regexp"

// Severity is the outcome a detection rule assigns when it fires.
type Severity string

const (
	SeverityReject     Severity = "reject"
	SeverityQuarantine Severity = "quarantine"
)

// Rule is a single detection pattern: an identifier, a compiled pattern,
// and the severity to apply when it matches.
type Rule struct {
	ID       string
	Pattern  *regexp.Regexp
	Severity Severity
}

func rule(id, pattern string, sev Severity) Rule {
	return Rule{ID: id, Pattern: regexp.MustCompile(pattern), Severity: sev}
}

// DefaultRules is the ordered rule table evaluated by Evaluate. Reject
// rules are ordered before quarantine rules so that reject always wins
// when both classes would otherwise match ("ordered: reject
// before quarantine").
var DefaultRules = buildDefaultRules()

func buildDefaultRules() []Rule {
	var rules []Rule

	// Secret patterns (reject). ~10 families.
	rules = append(rules,
		rule("aws-access-key", `AKIA[0-9A-Z]{16}`, SeverityReject),
		rule("aws-secret-key", `(?i)aws_secret_access_key\s*[:=]\s*['"]?[A-Za-z0-9/+=]{40}['"]?`, SeverityReject),
		rule("github-pat", `gh[pousr]_[A-Za-z0-9]{36,}`, SeverityReject),
		rule("generic-api-key", `(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{20,}['"]?`, SeverityReject),
		rule("bearer-token", `(?i)bearer\s+[A-Za-z0-9\-_\.]{20,}`, SeverityReject),
		rule("private-key-pem", `-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`, SeverityReject),
		rule("jwt-triple", `eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`, SeverityReject),
		rule("slack-token", `xox[baprs]-[0-9A-Za-z-]{10,}`, SeverityReject),
		rule("stripe-key", `sk_(live|test)_[0-9a-zA-Z]{24,}`, SeverityReject),
		rule("google-api-key", `AIza[0-9A-Za-z\-_]{35}`, SeverityReject),
	)

	// Prompt-injection patterns (reject). ~8 families.
	rules = append(rules,
		rule("ignore-previous-instructions", `(?i)ignore\s+(all\s+)?(previous|prior|above)\s+instructions`, SeverityReject),
		rule("disregard-instructions", `(?i)disregard\s+(all\s+)?(previous|prior|above|your)\s+(instructions|rules|prompt)`, SeverityReject),
		rule("system-prompt-fragment", `(?i)\bsystem\s*prompt\b.{0,40}(reveal|print|show|leak)`, SeverityReject),
		rule("you-are-now", `(?i)you\s+are\s+now\s+(a|an)\s+\w+`, SeverityReject),
		rule("role-override-marker", `(?i)\[\s*(system|assistant|developer)\s*\]\s*:`, SeverityReject),
		rule("pretend-to-be", `(?i)pretend\s+(you('re| are)|to\s+be)\s+`, SeverityReject),
		rule("new-instructions-follow", `(?i)new\s+instructions\s*:`, SeverityReject),
		rule("jailbreak-marker", `(?i)\bDAN\s+mode\b|jailbreak\s+prompt`, SeverityReject),
	)

	// Instructional-block patterns, tool-invocation syntax (reject). ~8 families.
	rules = append(rules,
		rule("tool-invocation-xml", `<(tool_use|function_calls|invoke)\b`, SeverityReject),
		rule("tool-invocation-fence", "```(tool_code|tool_call)", SeverityReject),
		rule("self-instruction-imperative", `(?i)\bwhen\s+(reading|processing)\s+this\s+(memory|document|note)\b.{0,40}\b(you\s+must|always|never)\b`, SeverityReject),
		rule("exfiltration-directive", `(?i)\bsend\s+(the|this|all)\s+(conversation|context|secrets?|credentials?)\s+to\b`, SeverityReject),
		rule("run-shell-command-directive", `(?i)\brun\s+the\s+following\s+command\s*:`, SeverityReject),
		rule("curl-exfil", `(?i)curl\s+.*\s+-d\s+.*\$\{?(conversation|context|history)`, SeverityReject),
		rule("base64-payload-directive", `(?i)decode\s+(and\s+)?execute\s+the\s+following\s+base64`, SeverityReject),
		rule("override-safety", `(?i)(disable|bypass|turn off)\s+(safety|content)\s+(filter|guard|policy)`, SeverityReject),
	)

	// Softer quarantine-class instructional patterns. ~4 families.
	rules = append(rules,
		rule("soft-imperative-note-to-self", `(?i)\bnote to (future )?(self|assistant)\s*:\s*(always|never)\b`, SeverityQuarantine),
		rule("soft-reminder-directive", `(?i)\bremember\s+to\s+always\b`, SeverityQuarantine),
		rule("soft-tool-mention", `(?i)\bcall\s+the\s+\w+\s+tool\s+with\b`, SeverityQuarantine),
		rule("soft-role-play", `(?i)\bact\s+as\s+if\s+you\s+(were|are)\b`, SeverityQuarantine),
	)

	// PII patterns (quarantine-level only). ~5 families.
	rules = append(rules,
		rule("email-address", `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`, SeverityQuarantine),
		rule("iban", `\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`, SeverityQuarantine),
		rule("phone-number", `\+?\d[\d\-\s]{8,14}\d`, SeverityQuarantine),
		rule("ssn-like", `\b\d{3}-\d{2}-\d{4}\b`, SeverityQuarantine),
		rule("payment-card", `\b(?:\d[ -]?){13,19}\b`, SeverityQuarantine), // Luhn-checked separately, see luhnOK.
	)

	return rules
}
