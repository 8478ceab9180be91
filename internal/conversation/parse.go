package conversation

import (
	"regexp"
	"strings"
)

// The parsers below follow a strict value-or-no-match contract: they
// never return an error, and a miss leaves the caller free to re-prompt.
// Matching is case-insensitive substring/word matching over a small fixed
// vocabulary; anything smarter is deliberately out of scope.

var domainKeywords = map[Domain][]string{
	DomainAlgorithms:      {"algorithm", "algo", "coding", "leetcode", "data structure"},
	DomainSystemDesign:    {"system", "design", "architecture", "scalability"},
	DomainDatabases:       {"database", "db", "sql", "nosql"},
	DomainMachineLearning: {"machine learning", "ml", "ai", "data science"},
	DomainBehavioral:      {"behavioral", "soft skill", "leadership"},
	DomainFrontend:        {"frontend", "front-end", "react", "javascript", "ui"},
	DomainBackend:         {"backend", "back-end", "api", "microservice"},
}

var intentKeywords = []string{"interview", "prepare", "job", "coding"}

var affirmativeKeywords = []string{"yes", "start", "create", "begin", "proceed"}

var satisfiedKeywords = []string{"satisfied", "good", "perfect", "thanks", "done", "complete"}

var refineKeywords = []string{"adjust", "change", "modify", "refine", "update", "improve"}

// containsWord reports whether text contains keyword as a whole word
// (or phrase), also accepting a plural form. Short keywords like "db"
// or "ml" must not match inside unrelated words.
func containsWord(text, keyword string) bool {
	return containsExact(text, keyword) || containsExact(text, keyword+"s")
}

func containsExact(text, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		before := start == 0 || !isWordChar(text[start-1])
		after := end == len(text) || !isWordChar(text[end])
		if before && after {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if containsWord(text, k) {
			return true
		}
	}
	return false
}

// ParseDomains extracts interview domains from an utterance. The
// standalone word "all" selects every domain regardless of other text.
// An empty result means no match.
func ParseDomains(text string) []Domain {
	lower := strings.ToLower(text)
	if containsWord(lower, "all") {
		out := make([]Domain, len(AllDomains))
		copy(out, AllDomains)
		return out
	}
	var out []Domain
	for _, d := range AllDomains {
		if containsAny(lower, domainKeywords[d]) {
			out = append(out, d)
		}
	}
	return out
}

// ParseSkillLevel extracts a skill level, or "" when nothing matched.
func ParseSkillLevel(text string) SkillLevel {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, []string{"beginner", "new", "start"}):
		return SkillBeginner
	case containsAny(lower, []string{"intermediate", "some experience", "mid"}):
		return SkillIntermediate
	case containsAny(lower, []string{"advanced", "expert", "experienced"}):
		return SkillAdvanced
	}
	return ""
}

// ParsePreference extracts a preparation style, or "" when nothing matched.
func ParsePreference(text string) Preference {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, []string{"theory", "concept", "understanding"}):
		return PrefTheoryHeavy
	case containsAny(lower, []string{"coding", "practice", "hands-on"}):
		return PrefCodingHeavy
	case containsAny(lower, []string{"balanced", "mix", "both"}):
		return PrefBalanced
	case containsAny(lower, []string{"project", "build", "real"}):
		return PrefProjectBased
	}
	return ""
}

// HasPrepIntent reports whether the utterance signals interview
// preparation intent.
func HasPrepIntent(text string) bool {
	return containsAny(strings.ToLower(text), intentKeywords)
}

// IsAffirmative reports whether the utterance confirms processing.
func IsAffirmative(text string) bool {
	return containsAny(strings.ToLower(text), affirmativeKeywords)
}

// IsSatisfied reports whether the utterance accepts the delivered plan.
func IsSatisfied(text string) bool {
	return containsAny(strings.ToLower(text), satisfiedKeywords)
}

// WantsRefinement reports whether the utterance asks for plan changes.
func WantsRefinement(text string) bool {
	return containsAny(strings.ToLower(text), refineKeywords)
}

var companyNames = []string{
	"google", "amazon", "meta", "facebook", "microsoft", "apple",
	"netflix", "uber", "airbnb", "stripe", "linkedin", "spotify",
}

// ParseCompanies extracts mentions of well-known employers, capitalized.
func ParseCompanies(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range companyNames {
		if containsWord(lower, c) {
			out = append(out, strings.ToUpper(c[:1])+c[1:])
		}
	}
	return out
}

var timelineRe = regexp.MustCompile(`\b(\d+)\s*(day|week|month)s?\b`)

// ParseTimeline extracts a preparation timeline like "3 weeks", or "".
func ParseTimeline(text string) string {
	m := timelineRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	out := m[1] + " " + m[2]
	if m[1] != "1" {
		out += "s"
	}
	return out
}

var targetRoleRe = regexp.MustCompile(`\b(?:as|for)\s+(?:a|an)\s+([a-z][a-z /-]*?)\s+(?:role|position)\b`)

// ParseTargetRole extracts a target role from phrases like
// "for a senior backend engineer role", or "".
func ParseTargetRole(text string) string {
	m := targetRoleRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// CaptureExtras records optional details mentioned in passing: target
// companies, role, and timeline. Companies accumulate without duplicates;
// role and timeline take the latest mention.
func CaptureExtras(in *Inputs, text string) {
	for _, c := range ParseCompanies(text) {
		known := false
		for _, existing := range in.Companies {
			if existing == c {
				known = true
				break
			}
		}
		if !known {
			in.Companies = append(in.Companies, c)
		}
	}
	if tl := ParseTimeline(text); tl != "" {
		in.Timeline = tl
	}
	if role := ParseTargetRole(text); role != "" {
		in.TargetRole = role
	}
}
