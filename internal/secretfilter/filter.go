package secretfilter

import (
	"github.com/nmemsh/nmem/internal/app"
)

// defaultEntropyThreshold and defaultEntropyMinLength are the spec §4.S1
// defaults before any per-project sensitivity or global override applies.
const (
	defaultEntropyThreshold = 4.0
	defaultEntropyMinLength = 20

	strictEntropyThreshold = 3.5
	strictEntropyMinLength = 16
)

// resolved carries the effective entropy-phase settings for one redaction
// call, after merging global config, per-project sensitivity, and defaults.
type resolved struct {
	extraPatterns    []string
	entropyThreshold float64
	entropyMinLength uint
	entropyDisabled  bool
}

// resolveSettings implements spec §4.S1's per-project sensitivity resolution:
// "strict" lowers defaults unless globals are explicit; "relaxed" disables
// entropy unless the global threshold is explicit; global explicit settings
// always win.
func resolveSettings(global app.FilterConfig, project app.ProjectConfig) resolved {
	r := resolved{
		extraPatterns:    global.ExtraPatterns,
		entropyThreshold: defaultEntropyThreshold,
		entropyMinLength: defaultEntropyMinLength,
		entropyDisabled:  global.DisableEntropy,
	}

	thresholdExplicit := global.EntropyThreshold != 0
	minLengthExplicit := global.EntropyMinLength != 0

	switch project.Sensitivity {
	case "strict":
		if !thresholdExplicit {
			r.entropyThreshold = strictEntropyThreshold
		}
		if !minLengthExplicit {
			r.entropyMinLength = strictEntropyMinLength
		}
	case "relaxed":
		if !thresholdExplicit {
			r.entropyDisabled = true
		}
	}

	if thresholdExplicit {
		r.entropyThreshold = global.EntropyThreshold
	}
	if minLengthExplicit {
		r.entropyMinLength = global.EntropyMinLength
	}

	return r
}

// Redact applies the regex phase then, if enabled, the entropy phase to s,
// returning the redacted string and whether any redaction occurred.
func Redact(s string, global app.FilterConfig, project app.ProjectConfig) (string, bool) {
	cfg := resolveSettings(global, project)
	return redactWith(s, cfg)
}

func redactWith(s string, cfg resolved) (string, bool) {
	redacted := false

	for _, p := range builtinPatterns {
		if p.MatchString(s) {
			redacted = true
			s = p.ReplaceAllString(s, redactedPlaceholder)
		}
	}
	for _, pat := range cfg.extraPatterns {
		re, err := compileExtraPattern(pat)
		if err != nil {
			continue // malformed user pattern, skip rather than fail the whole redaction
		}
		if re.MatchString(s) {
			redacted = true
			s = re.ReplaceAllString(s, redactedPlaceholder)
		}
	}

	if cfg.entropyDisabled {
		return s, redacted
	}

	tokens := tokenizeForEntropy(s)
	// Iterate in reverse so earlier byte offsets stay valid as we splice.
	for i := len(tokens) - 1; i >= 0; i-- {
		tok := tokens[i]
		if uint(len(tok.text)) < cfg.entropyMinLength {
			continue
		}
		if isAllowlisted(tok.text) {
			continue
		}
		if shannonEntropy(tok.text) >= cfg.entropyThreshold {
			s = s[:tok.start] + redactedPlaceholder + s[tok.end:]
			redacted = true
		}
	}

	return s, redacted
}

// RedactValue walks a decoded JSON-like structure (map[string]any,
// []any, or scalar) applying Redact to each string leaf. Returns the
// (possibly rebuilt) value and whether any leaf was redacted.
func RedactValue(v any, global app.FilterConfig, project app.ProjectConfig) (any, bool) {
	switch t := v.(type) {
	case string:
		out, was := Redact(t, global, project)
		return out, was
	case map[string]any:
		any2 := false
		out := make(map[string]any, len(t))
		for k, val := range t {
			rv, was := RedactValue(val, global, project)
			out[k] = rv
			any2 = any2 || was
		}
		return out, any2
	case []any:
		any2 := false
		out := make([]any, len(t))
		for i, val := range t {
			rv, was := RedactValue(val, global, project)
			out[i] = rv
			any2 = any2 || was
		}
		return out, any2
	default:
		return v, false
	}
}
