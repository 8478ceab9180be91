package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/research/brave"
	"github.com/mohammad-safakhou/prepagent/internal/research/models"
	"github.com/mohammad-safakhou/prepagent/internal/research/serper"
)

// Searcher discovers web results for a query.
type Searcher interface {
	Discover(ctx context.Context, q string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

func NewSearcher(provider Provider, apiKey string) (Searcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{ApiKey: apiKey}, nil
	case BraveProvider:
		return brave.Search{ApiKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", provider)
	}
}

// Summary is the aggregated research outcome for one preparation request.
// Success is false only when every query failed; partial results still
// count as usable research.
type Summary struct {
	Success         bool
	ByDomain        map[conversation.Domain][]models.Result
	CompanyInsights []models.Result
	Failures        []string
}

// Manager runs the research queries for a plan.
type Manager struct {
	searcher   Searcher
	maxResults int
	logger     *log.Logger
}

func NewManager(searcher Searcher, maxResults int, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Manager{searcher: searcher, maxResults: maxResults, logger: logger}
}

// ComprehensiveResearch queries the provider once per domain, plus one
// query per target company. Individual query failures are logged and
// recorded but do not abort the rest.
func (m *Manager) ComprehensiveResearch(ctx context.Context, domains []conversation.Domain, level conversation.SkillLevel, companies []string) Summary {
	sum := Summary{ByDomain: make(map[conversation.Domain][]models.Result)}
	attempted := 0
	succeeded := 0

	for _, d := range domains {
		attempted++
		q := domainQuery(d, level)
		results, err := m.searcher.Discover(ctx, q, m.maxResults)
		if err != nil {
			m.logger.Printf("domain query %q failed: %v", q, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", d, err))
			continue
		}
		succeeded++
		sum.ByDomain[d] = results
	}

	for _, company := range companies {
		attempted++
		q := fmt.Sprintf("%s interview process and questions", company)
		results, err := m.searcher.Discover(ctx, q, m.maxResults)
		if err != nil {
			m.logger.Printf("company query %q failed: %v", q, err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", company, err))
			continue
		}
		succeeded++
		sum.CompanyInsights = append(sum.CompanyInsights, results...)
	}

	sum.Success = attempted == 0 || succeeded > 0
	return sum
}

func domainQuery(d conversation.Domain, level conversation.SkillLevel) string {
	topic := strings.ReplaceAll(string(d), "_", " ")
	if level == "" {
		return fmt.Sprintf("latest %s interview questions and preparation resources", topic)
	}
	return fmt.Sprintf("latest %s interview questions and preparation resources for %s level", topic, level)
}
