package conversation

import "log"

// Controller implements the conversation state machine. Advance mutates
// the supplied state in place and returns the turn outcome; persisting
// the state afterwards is the caller's job.
type Controller struct {
	logger *log.Logger
}

// NewController constructs a Controller.
func NewController(logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(log.Writer(), "[CONV] ", log.LstdFlags)
	}
	return &Controller{logger: logger}
}

// Advance processes exactly one user utterance against the current state.
// Parse misses are recoverable: the state is left untouched and the user
// is re-prompted. Internal faults are recovered into an error turn so the
// conversation stays resumable.
func (c *Controller) Advance(state *State, utterance string) (turn Turn) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("recovered from panic in phase %s: %v", state.Phase, r)
			turn = Turn{Content: errorMessage, Phase: PhaseError, RequireUserInput: true}
		}
	}()

	state.AddMessage("user", utterance)

	switch state.Phase {
	case PhaseInitial:
		turn = c.handleInitial(state, utterance)
	case PhaseDomainSelection:
		turn = c.handleDomainSelection(state, utterance)
	case PhaseLevelAssessment:
		turn = c.handleLevelAssessment(state, utterance)
	case PhasePreferenceGathering:
		turn = c.handlePreferenceGathering(state, utterance)
	case PhaseReadyToProcess:
		turn = c.handleReadyToProcess(state, utterance)
	case PhaseAsyncProcessing:
		turn = Turn{Content: asyncProcessingMessage, Phase: PhaseAsyncProcessing}
	case PhasePlanDelivered:
		turn = c.handlePlanDelivered(state, utterance)
	case PhaseRefinementInput:
		turn = c.handleRefinementInput(state, utterance)
	case PhaseRefinementProcessing:
		turn = Turn{Content: refinementProcessingMessage, Phase: PhaseRefinementProcessing}
	case PhaseCompleted:
		turn = Turn{Content: completedMessage, Phase: PhaseCompleted, TaskComplete: true}
	default:
		c.logger.Printf("unknown phase %q, treating as initial", state.Phase)
		state.Phase = PhaseInitial
		turn = c.handleInitial(state, utterance)
	}

	state.AddMessage("agent", turn.Content)
	return turn
}

func (c *Controller) handleInitial(state *State, utterance string) Turn {
	if !HasPrepIntent(utterance) {
		return Turn{Content: welcomeMessage, Phase: PhaseInitial, RequireUserInput: true}
	}
	state.AdvancePhase(PhaseDomainSelection)
	return Turn{Content: domainMenu, Phase: PhaseDomainSelection, RequireUserInput: true}
}

func (c *Controller) handleDomainSelection(state *State, utterance string) Turn {
	domains := ParseDomains(utterance)
	if len(domains) == 0 {
		// fixed point: no valid extraction never advances
		return Turn{Content: domainReprompt, Phase: PhaseDomainSelection, RequireUserInput: true}
	}
	// a new selection replaces, not merges, any prior one
	state.Inputs.Domains = domains
	state.AdvancePhase(PhaseLevelAssessment)
	return Turn{Content: levelMenu(domains), Phase: PhaseLevelAssessment, RequireUserInput: true}
}

func (c *Controller) handleLevelAssessment(state *State, utterance string) Turn {
	level := ParseSkillLevel(utterance)
	if level == "" {
		return Turn{Content: levelReprompt, Phase: PhaseLevelAssessment, RequireUserInput: true}
	}
	state.Inputs.SkillLevel = level
	state.AdvancePhase(PhasePreferenceGathering)
	return Turn{Content: preferenceMenu(level), Phase: PhasePreferenceGathering, RequireUserInput: true}
}

func (c *Controller) handlePreferenceGathering(state *State, utterance string) Turn {
	CaptureExtras(&state.Inputs, utterance)
	pref := ParsePreference(utterance)
	if pref == "" {
		return Turn{Content: preferenceReprompt, Phase: PhasePreferenceGathering, RequireUserInput: true}
	}
	state.Inputs.Preference = pref
	if !state.Inputs.Complete() {
		return Turn{Content: missingInputsPrompt(state.Inputs.Missing()), Phase: PhasePreferenceGathering, RequireUserInput: true}
	}
	state.AdvancePhase(PhaseReadyToProcess)
	state.PendingConfirmation = true
	return Turn{Content: confirmationSummary(state.Inputs), Phase: PhaseReadyToProcess, RequireUserInput: true}
}

func (c *Controller) handleReadyToProcess(state *State, utterance string) Turn {
	if !IsAffirmative(utterance) {
		return Turn{Content: confirmReprompt, Phase: PhaseReadyToProcess, RequireUserInput: true}
	}
	// The phase is left at ready_to_process on purpose: the orchestrator
	// advances it once the background work has actually started, so a
	// duplicate confirmation cannot re-trigger processing.
	state.PendingConfirmation = false
	return Turn{
		Content:      "Processing your interview preparation request...",
		Phase:        PhaseReadyToProcess,
		TriggerAsync: true,
	}
}

func (c *Controller) handlePlanDelivered(state *State, utterance string) Turn {
	switch {
	case IsSatisfied(utterance):
		state.AdvancePhase(PhaseCompleted)
		return Turn{Content: closingMessage, Phase: PhaseCompleted, TaskComplete: true}
	case WantsRefinement(utterance):
		state.AdvancePhase(PhaseRefinementInput)
		return Turn{Content: refinementPrompt, Phase: PhaseRefinementInput, RequireUserInput: true}
	default:
		return Turn{Content: satisfactionQuestion, Phase: PhasePlanDelivered, RequireUserInput: true}
	}
}

func (c *Controller) handleRefinementInput(state *State, utterance string) Turn {
	// refinement requests are accepted verbatim, never rejected
	CaptureExtras(&state.Inputs, utterance)
	state.RefinementRequests = append(state.RefinementRequests, utterance)
	state.AdvancePhase(PhaseRefinementProcessing)
	return Turn{
		Content:      "I understand your refinement request. Processing your adjustments...",
		Phase:        PhaseRefinementProcessing,
		TriggerAsync: true,
		Refinement:   true,
	}
}
