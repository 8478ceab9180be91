package plan

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/research"
	"github.com/mohammad-safakhou/prepagent/internal/research/models"
)

func sampleInputs() conversation.Inputs {
	return conversation.Inputs{
		Domains:    []conversation.Domain{conversation.DomainAlgorithms, conversation.DomainSystemDesign},
		SkillLevel: conversation.SkillIntermediate,
		Preference: conversation.PrefCodingHeavy,
	}
}

func TestRenderEachDomainOnce(t *testing.T) {
	out := Render(sampleInputs(), research.Summary{})

	for _, header := range []string{"### Algorithms", "### System Design"} {
		if n := strings.Count(out, header); n != 1 {
			t.Fatalf("expected %q exactly once, got %d occurrences", header, n)
		}
	}
	if strings.Contains(out, "### Databases") {
		t.Fatal("unselected domain leaked into the plan")
	}
}

func TestRenderScalesDurationByLevel(t *testing.T) {
	in := sampleInputs()
	cases := []struct {
		level conversation.SkillLevel
		want  string
	}{
		{conversation.SkillBeginner, "Recommended duration: 16 weeks"},
		{conversation.SkillIntermediate, "Recommended duration: 12 weeks"},
		{conversation.SkillAdvanced, "Recommended duration: 8 weeks"},
	}
	for _, tc := range cases {
		in.SkillLevel = tc.level
		if out := Render(in, research.Summary{}); !strings.Contains(out, tc.want) {
			t.Fatalf("level %s: missing %q", tc.level, tc.want)
		}
	}
}

func TestRenderUsesResearchResults(t *testing.T) {
	sum := research.Summary{
		Success: true,
		ByDomain: map[conversation.Domain][]models.Result{
			conversation.DomainAlgorithms: {{Title: "Fresh Algo Guide", URL: "https://algo.example"}},
		},
	}
	out := Render(sampleInputs(), sum)

	if !strings.Contains(out, "Fresh Algo Guide (https://algo.example)") {
		t.Fatal("research result missing from resources")
	}
	// the domain without results falls back to curated material
	if !strings.Contains(out, "System Design Primer") {
		t.Fatal("expected curated fallback for un-researched domain")
	}
	// the researched domain must not also show fallback entries
	if strings.Contains(out, "LeetCode problem sets") {
		t.Fatal("curated fallback shown despite research results")
	}
}

func TestRenderCompanyInsights(t *testing.T) {
	in := sampleInputs()
	in.Companies = []string{"Initech"}
	sum := research.Summary{
		Success:         true,
		CompanyInsights: []models.Result{{Title: "Initech loop overview", URL: "https://initech.example"}},
	}
	out := Render(in, sum)

	if !strings.Contains(out, "## Company Insights") {
		t.Fatal("missing company insights section")
	}
	if !strings.Contains(out, "Target Companies: Initech") {
		t.Fatal("missing target companies line")
	}
}

func TestRenderFallback(t *testing.T) {
	out := RenderFallback(sampleInputs())
	if !strings.Contains(out, "LeetCode problem sets") {
		t.Fatal("fallback plan should carry curated resources")
	}
	if strings.Contains(out, "## Company Insights") {
		t.Fatal("fallback plan should have no company insights")
	}
}

func TestRenderRefined(t *testing.T) {
	base := Render(sampleInputs(), research.Summary{})
	requests := []string{"shorten it", "spend more time on system design each week"}
	out := RenderRefined(base, sampleInputs(), requests)

	if !strings.HasPrefix(out, base) {
		t.Fatal("refined plan should extend the base plan")
	}
	if !strings.Contains(out, "## Refinement Adjustments") {
		t.Fatal("missing refinement section")
	}
	for _, r := range requests {
		if !strings.Contains(out, r) {
			t.Fatalf("request %q not listed", r)
		}
	}
	if !strings.Contains(out, "Increased emphasis on System Design") {
		t.Fatal("expected domain-specific recommendation")
	}
	if !strings.Contains(out, "Adjusted the weekly schedule") {
		t.Fatal("expected schedule recommendation")
	}
}

func TestRecommendationsDefault(t *testing.T) {
	recs := Recommendations("make it nicer", sampleInputs())
	if len(recs) != 1 || !strings.Contains(recs[0], "feedback") {
		t.Fatalf("expected single generic recommendation, got %#v", recs)
	}
}
