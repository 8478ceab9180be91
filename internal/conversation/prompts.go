package conversation

import (
	"fmt"
	"strings"
)

// Fixed prompt texts emitted by the controller. These are part of the
// conversational contract: tests and downstream vocab matching key off
// specific phrases (e.g. the satisfaction question).

const welcomeMessage = `Hello! I'm your Interview Preparation Coach. I help professionals prepare for technical interviews with personalized study plans and resources.

I can help you with:
- Algorithm and coding interview prep
- System design interview guidance
- Domain-specific preparation (ML, databases, etc.)
- Company-specific interview insights
- Personalized study schedules

Would you like to start preparing for interviews? Just say "I want to prepare for interviews" or tell me about your specific goals!`

const domainMenu = `Great! I'm here to help you prepare for interviews. Let me gather some information to create a personalized preparation plan.

First, which interview domains would you like to focus on? You can choose multiple:

- Algorithms: data structures, algorithms, coding problems
- System Design: scalable architecture, distributed systems
- Databases: SQL, NoSQL, database design
- Machine Learning: ML algorithms, data science concepts
- Behavioral: soft skills, situational questions
- Frontend: JavaScript, React, UI/UX
- Backend: APIs, microservices, server architecture

Please tell me which domains interest you, or type "all" if you want comprehensive preparation.`

const domainReprompt = `I didn't quite catch which domains you'd like to focus on. Please choose from:

- Algorithms (or "algo")
- System Design (or "systems")
- Databases (or "db")
- Machine Learning (or "ml")
- Behavioral
- Frontend
- Backend

You can say something like "I want to focus on algorithms and system design" or just "algorithms, databases".`

const levelReprompt = `Please let me know your skill level:

- Beginner: new to these topics
- Intermediate: some experience
- Advanced: experienced professional

Just say "beginner", "intermediate", or "advanced".`

const preferenceReprompt = `Please choose your learning preference:

- Theory-Heavy: focus on concepts and understanding
- Coding-Heavy: emphasis on practice and coding
- Balanced: mix of theory and practice
- Project-Based: learn through building projects

Just say something like "I prefer coding-heavy" or "balanced approach".`

const confirmReprompt = `Please confirm if you want me to create your preparation plan by saying "Yes, create my plan".`

const asyncProcessingMessage = `I'm currently processing your request. Please wait for the results via push notification.`

const refinementProcessingMessage = `I'm processing your refinement request. Please wait for the updated plan.`

const satisfactionQuestion = `Are you satisfied with your preparation plan, or would you like me to make any adjustments?

You can say:
- "I'm satisfied" or "This looks good" to complete
- "I want to adjust..." to request changes`

const refinementPrompt = `I'd be happy to refine your preparation plan!

What would you like me to adjust? For example:
- Add more focus on specific domains
- Change the timeline or intensity
- Include specific companies or roles
- Modify learning resources or style

Please describe what you'd like me to change.`

const closingMessage = `Excellent! Your interview preparation plan is complete.

Next steps:
1. Save your preparation plan for reference
2. Start with the first week's activities
3. Track your progress regularly
4. Come back anytime for plan updates

Good luck with your interview preparation!`

const completedMessage = `Your preparation plan has been completed! Is there anything specific you'd like me to adjust or explain further?`

const errorMessage = `I encountered an error while processing your request. Please try again or rephrase your message.`

func levelMenu(domains []Domain) string {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = Title(string(d))
	}
	return fmt.Sprintf(`Perfect! You've selected: %s

Now, what's your current skill level in these areas?

- Beginner: new to the field, learning fundamentals
- Intermediate: some experience, comfortable with basics
- Advanced: experienced, looking to master complex topics

Please tell me your skill level.`, strings.Join(names, ", "))
}

func preferenceMenu(level SkillLevel) string {
	return fmt.Sprintf(`Great! I've noted your skill level as %s.

Now, what's your learning preference?

- Theory-Heavy: focus on concepts, principles, and understanding
- Coding-Heavy: emphasis on practice problems and hands-on coding
- Balanced: mix of theory and practical exercises
- Project-Based: learn through building real projects

What approach works best for you?`, Title(string(level)))
}

func confirmationSummary(in Inputs) string {
	names := make([]string, len(in.Domains))
	for i, d := range in.Domains {
		names[i] = Title(string(d))
	}
	return fmt.Sprintf(`Perfect! Here's what I've gathered:

Domains: %s
Skill Level: %s
Learning Style: %s

I'm ready to create your personalized interview preparation plan. This will involve:
- Researching latest interview trends and resources
- Creating a customized study schedule
- Finding domain-specific practice materials
- Generating a comprehensive roadmap

This process takes a few minutes. Would you like me to start creating your plan?

Reply with "Yes, create my plan" to begin processing.`,
		strings.Join(names, ", "), Title(string(in.SkillLevel)), Title(string(in.Preference)))
}

func missingInputsPrompt(missing []string) string {
	return fmt.Sprintf("I still need some more information. Could you please provide your %s?", strings.Join(missing, ", "))
}
