package probe

import "regexp"

// RedactionRule replaces matches of Pattern with Replace.
type RedactionRule struct {
	Pattern string `yaml:"pattern" json:"pattern" jsonschema:"required"`
	Replace string `yaml:"replace" json:"replace"`
}

// Redactor applies compiled redaction rules to probe output before it is
// recorded as evidence or sent to a model.
type Redactor struct {
	rules []compiledRule
}

type compiledRule struct {
	re      *regexp.Regexp
	replace string
}

// DefaultRedactionRules masks common secrets that show up in process lists
// and journal lines.
var DefaultRedactionRules = []RedactionRule{
	{Pattern: `(?i)(password|passwd|secret|token|api[_-]?key)(\s*[=:]\s*)\S+`, Replace: "${1}${2}[REDACTED]"},
	{Pattern: `(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`, Replace: "[REDACTED PRIVATE KEY]"},
	{Pattern: `\bsk-[A-Za-z0-9]{20,}\b`, Replace: "[REDACTED]"},
}

// NewRedactor compiles rules.
func NewRedactor(rules []RedactionRule) (*Redactor, error) {
	r := &Redactor{}
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, compiledRule{re: re, replace: rule.Replace})
	}
	return r, nil
}

// Redact applies every rule in order. A nil Redactor returns s unchanged.
func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, rule.replace)
	}
	return s
}
