// Package plan renders interview preparation plans as plain text. The
// renderers are pure: all inputs are passed in, nothing is fetched.
package plan

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/research"
)

// studyTopics are the curated focus areas per domain, used both for the
// schedule and as the fallback when research is unavailable.
var studyTopics = map[conversation.Domain][]string{
	conversation.DomainAlgorithms:      {"Arrays, strings and hashing", "Trees and graphs", "Dynamic programming", "Sorting and searching"},
	conversation.DomainSystemDesign:    {"Scalability fundamentals", "Load balancing and caching", "Data partitioning", "Designing well-known systems"},
	conversation.DomainDatabases:       {"SQL query optimization", "Indexing and transactions", "NoSQL trade-offs", "Schema design"},
	conversation.DomainMachineLearning: {"Supervised learning foundations", "Model evaluation", "Feature engineering", "ML system design"},
	conversation.DomainBehavioral:      {"STAR method storytelling", "Conflict resolution examples", "Leadership scenarios", "Strengths and growth areas"},
	conversation.DomainFrontend:        {"JavaScript fundamentals", "Framework patterns", "Rendering and performance", "Accessibility basics"},
	conversation.DomainBackend:         {"API design", "Concurrency and queues", "Service decomposition", "Observability and reliability"},
}

var fallbackResources = map[conversation.Domain][]string{
	conversation.DomainAlgorithms:      {"LeetCode problem sets", "Cracking the Coding Interview"},
	conversation.DomainSystemDesign:    {"System Design Primer (GitHub)", "Designing Data-Intensive Applications"},
	conversation.DomainDatabases:       {"Use The Index, Luke", "SQLBolt interactive lessons"},
	conversation.DomainMachineLearning: {"Hands-On Machine Learning", "Google ML crash course"},
	conversation.DomainBehavioral:      {"Amazon leadership principles guides", "STAR method worksheets"},
	conversation.DomainFrontend:        {"MDN Web Docs", "JavaScript.info"},
	conversation.DomainBackend:         {"Microservices patterns (Richardson)", "REST API design guidelines"},
}

// recommendedWeeks scales the suggested preparation window by level.
var recommendedWeeks = map[conversation.SkillLevel]int{
	conversation.SkillBeginner:     16,
	conversation.SkillIntermediate: 12,
	conversation.SkillAdvanced:     8,
}

var weeklyFocus = map[conversation.Preference]string{
	conversation.PrefTheoryHeavy:  "60% concept study, 40% practice problems",
	conversation.PrefCodingHeavy:  "30% concept study, 70% practice problems",
	conversation.PrefBalanced:     "50% concept study, 50% practice problems",
	conversation.PrefProjectBased: "40% concept study, 60% applied project work",
}

// Render produces the full preparation plan. Every selected domain gets
// exactly one resources section, fed by research results when available
// and curated fallbacks otherwise.
func Render(in conversation.Inputs, sum research.Summary) string {
	var b strings.Builder

	b.WriteString("# Your Personalized Interview Preparation Plan\n\n")
	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "- Domains: %s\n", domainNames(in.Domains))
	fmt.Fprintf(&b, "- Skill Level: %s\n", conversation.Title(string(in.SkillLevel)))
	fmt.Fprintf(&b, "- Learning Style: %s\n", conversation.Title(string(in.Preference)))
	if in.TargetRole != "" {
		fmt.Fprintf(&b, "- Target Role: %s\n", in.TargetRole)
	}
	if len(in.Companies) > 0 {
		fmt.Fprintf(&b, "- Target Companies: %s\n", strings.Join(in.Companies, ", "))
	}
	if in.Timeline != "" {
		fmt.Fprintf(&b, "- Timeline: %s\n", in.Timeline)
	}
	b.WriteString("\n")

	b.WriteString("## Study Schedule\n")
	if weeks, ok := recommendedWeeks[in.SkillLevel]; ok {
		fmt.Fprintf(&b, "Recommended duration: %d weeks\n", weeks)
	}
	fmt.Fprintf(&b, "Weekly split: %s\n\n", weeklySplit(in.Preference))
	for week, d := range in.Domains {
		fmt.Fprintf(&b, "Week %d: %s\n", week+1, conversation.Title(string(d)))
		for _, topic := range studyTopics[d] {
			fmt.Fprintf(&b, "  - %s\n", topic)
		}
	}
	fmt.Fprintf(&b, "Week %d: Mock interviews and review across all domains\n\n", len(in.Domains)+1)

	b.WriteString("## Resources\n")
	for _, d := range in.Domains {
		fmt.Fprintf(&b, "### %s\n", conversation.Title(string(d)))
		if results := sum.ByDomain[d]; len(results) > 0 {
			for _, r := range results {
				fmt.Fprintf(&b, "- %s (%s)\n", r.Title, r.URL)
			}
		} else {
			for _, r := range fallbackResources[d] {
				fmt.Fprintf(&b, "- %s\n", r)
			}
		}
		b.WriteString("\n")
	}

	if len(sum.CompanyInsights) > 0 {
		b.WriteString("## Company Insights\n")
		for _, r := range sum.CompanyInsights {
			fmt.Fprintf(&b, "- %s (%s)\n", r.Title, r.URL)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Tips\n")
	b.WriteString("- Practice consistently rather than cramming\n")
	b.WriteString("- Simulate real interview conditions at least once a week\n")
	b.WriteString("- Review mistakes and keep a log of recurring gaps\n")
	return b.String()
}

// RenderFallback produces a plan from curated material only, used when
// research failed entirely.
func RenderFallback(in conversation.Inputs) string {
	return Render(in, research.Summary{})
}

// RenderRefined appends a refinement section to an existing plan. The
// latest request drives the recommendations; earlier requests remain
// listed for context.
func RenderRefined(base string, in conversation.Inputs, requests []string) string {
	if len(requests) == 0 {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n## Refinement Adjustments\n")
	b.WriteString("Requested changes:\n")
	for i, r := range requests {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	b.WriteString("\nRecommendations:\n")
	for _, rec := range Recommendations(requests[len(requests)-1], in) {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return b.String()
}

// Recommendations derives concrete follow-ups from a refinement request.
func Recommendations(request string, in conversation.Inputs) []string {
	lower := strings.ToLower(request)
	var recs []string
	if strings.Contains(lower, "time") || strings.Contains(lower, "week") || strings.Contains(lower, "schedule") {
		recs = append(recs, "Adjusted the weekly schedule; re-plan your calendar around the new timeline")
	}
	if strings.Contains(lower, "company") || strings.Contains(lower, "companies") {
		recs = append(recs, "Added company-specific focus; research recent interview experiences for your targets")
	}
	if strings.Contains(lower, "resource") || strings.Contains(lower, "material") {
		recs = append(recs, "Swapped in alternative learning resources matching your style")
	}
	for _, d := range conversation.AllDomains {
		if strings.Contains(lower, strings.ReplaceAll(string(d), "_", " ")) {
			recs = append(recs, fmt.Sprintf("Increased emphasis on %s topics and practice", conversation.Title(string(d))))
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Incorporated your feedback into the plan's focus and pacing")
	}
	return recs
}

func domainNames(domains []conversation.Domain) string {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = conversation.Title(string(d))
	}
	return strings.Join(names, ", ")
}

func weeklySplit(p conversation.Preference) string {
	if s, ok := weeklyFocus[p]; ok {
		return s
	}
	return weeklyFocus[conversation.PrefBalanced]
}
