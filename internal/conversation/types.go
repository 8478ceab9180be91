package conversation

import "time"

// Phase enumerates the positions of the multi-turn conversation state
// machine. Phases only move forward, except for the explicit refinement
// loop out of PhasePlanDelivered.
type Phase string

const (
	PhaseInitial              Phase = "initial"
	PhaseDomainSelection      Phase = "domain_selection"
	PhaseLevelAssessment      Phase = "level_assessment"
	PhasePreferenceGathering  Phase = "preference_gathering"
	PhaseReadyToProcess       Phase = "ready_to_process"
	PhaseAsyncProcessing      Phase = "async_processing"
	PhasePlanDelivered        Phase = "plan_delivered"
	PhaseRefinementInput      Phase = "refinement_input"
	PhaseRefinementProcessing Phase = "refinement_processing"
	PhaseCompleted            Phase = "completed"

	// PhaseError is never stored; it only labels the turn outcome produced
	// when the controller recovers from an internal fault.
	PhaseError Phase = "error"
)

// Domain enumerates the interview domains a user can select.
type Domain string

const (
	DomainAlgorithms      Domain = "algorithms"
	DomainSystemDesign    Domain = "system_design"
	DomainDatabases       Domain = "databases"
	DomainMachineLearning Domain = "machine_learning"
	DomainBehavioral      Domain = "behavioral"
	DomainFrontend        Domain = "frontend"
	DomainBackend         Domain = "backend"
)

// AllDomains lists every selectable domain in menu order.
var AllDomains = []Domain{
	DomainAlgorithms,
	DomainSystemDesign,
	DomainDatabases,
	DomainMachineLearning,
	DomainBehavioral,
	DomainFrontend,
	DomainBackend,
}

// SkillLevel enumerates user self-assessed experience levels.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
)

// Preference enumerates preparation style preferences.
type Preference string

const (
	PrefTheoryHeavy  Preference = "theory_heavy"
	PrefCodingHeavy  Preference = "coding_heavy"
	PrefBalanced     Preference = "balanced"
	PrefProjectBased Preference = "project_based"
)

// Inputs is the structured record collected over the gathering phases.
// Fields are filled monotonically; a refinement may amend them but a
// parse miss never clears anything.
type Inputs struct {
	Domains           []Domain   `json:"domains"`
	SkillLevel        SkillLevel `json:"skill_level,omitempty"`
	Preference        Preference `json:"preference,omitempty"`
	TargetRole        string     `json:"target_role,omitempty"`
	Timeline          string     `json:"timeline,omitempty"`
	Companies         []string   `json:"companies,omitempty"`
	ExtraRequirements []string   `json:"extra_requirements,omitempty"`
}

// Complete reports whether every required field has been collected.
func (in Inputs) Complete() bool {
	return len(in.Domains) > 0 && in.SkillLevel != "" && in.Preference != ""
}

// Missing lists the required fields still unset, in asking order.
func (in Inputs) Missing() []string {
	var missing []string
	if len(in.Domains) == 0 {
		missing = append(missing, "interview domains")
	}
	if in.SkillLevel == "" {
		missing = append(missing, "skill level")
	}
	if in.Preference == "" {
		missing = append(missing, "preparation preference")
	}
	return missing
}

// Message is one history entry, tagged with the phase at the time it
// was recorded.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Phase   Phase  `json:"phase"`
}

// State is the full conversation record for one context id.
type State struct {
	Phase               Phase     `json:"phase"`
	Inputs              Inputs    `json:"inputs"`
	History             []Message `json:"history"`
	Plan                string    `json:"plan,omitempty"`
	PlanGenerated       bool      `json:"plan_generated"`
	RefinementRequests  []string  `json:"refinement_requests,omitempty"`
	PendingConfirmation bool      `json:"pending_confirmation"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewState returns a fresh conversation positioned at the initial phase.
func NewState() *State {
	return &State{Phase: PhaseInitial, UpdatedAt: time.Now()}
}

// AddMessage appends a history entry tagged with the current phase.
func (s *State) AddMessage(role, content string) {
	s.History = append(s.History, Message{Role: role, Content: content, Phase: s.Phase})
	s.UpdatedAt = time.Now()
}

// AdvancePhase moves the conversation to the given phase.
func (s *State) AdvancePhase(p Phase) {
	s.Phase = p
	s.UpdatedAt = time.Now()
}

// Clone returns a deep copy so callers can mutate freely without racing
// the store's own copy.
func (s *State) Clone() *State {
	out := *s
	out.Inputs.Domains = append([]Domain(nil), s.Inputs.Domains...)
	out.Inputs.Companies = append([]string(nil), s.Inputs.Companies...)
	out.History = append([]Message(nil), s.History...)
	out.RefinementRequests = append([]string(nil), s.RefinementRequests...)
	return &out
}

// Turn is the controller's structured outcome for one processed utterance.
type Turn struct {
	Content          string `json:"content"`
	Phase            Phase  `json:"phase"`
	RequireUserInput bool   `json:"require_user_input"`
	TaskComplete     bool   `json:"task_complete"`
	TriggerAsync     bool   `json:"-"`
	Refinement       bool   `json:"-"`
}

// Title renders an enum-ish value ("system_design") for display
// ("System Design").
func Title(v string) string {
	parts := []byte(v)
	up := true
	for i := 0; i < len(parts); i++ {
		c := parts[i]
		if c == '_' {
			parts[i] = ' '
			up = true
			continue
		}
		if up && c >= 'a' && c <= 'z' {
			parts[i] = c - 'a' + 'A'
		}
		up = false
	}
	return string(parts)
}
