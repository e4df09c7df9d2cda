package questions

import (
	"math/rand"

	"intervox/internal/errors"
	"intervox/models"
)

// Bank holds the built-in question pool, grouped by session type. A
// mixed session draws from every group.
type Bank struct {
	pool map[models.SessionType][]models.Question
}

// NewBank returns the built-in question bank
func NewBank() *Bank {
	return &Bank{pool: map[models.SessionType][]models.Question{
		models.SessionHR:        hrQuestions,
		models.SessionTechnical: technicalQuestions,
		models.SessionAptitude:  aptitudeQuestions,
	}}
}

// Select draws count questions for the given session type, shuffled with
// the given seed so a session's question order is reproducible.
func (b *Bank) Select(sessionType models.SessionType, count int, seed int64) ([]models.Question, error) {
	if count <= 0 {
		return nil, errors.InvalidInput("question count must be positive")
	}

	var pool []models.Question
	if sessionType == models.SessionMixed {
		for _, group := range b.pool {
			pool = append(pool, group...)
		}
	} else {
		group, ok := b.pool[sessionType]
		if !ok {
			return nil, errors.InvalidInput("unknown session type: " + string(sessionType))
		}
		pool = append(pool, group...)
	}
	if count > len(pool) {
		count = len(pool)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:count], nil
}

var hrQuestions = []models.Question{
	{
		ID:                      "hr-intro",
		Text:                    "Tell me about yourself and your background.",
		Type:                    models.QuestionBehavioral,
		Difficulty:              "easy",
		SkillsEvaluated:         []string{"communication", "self-awareness"},
		ExpectedDurationSeconds: 90,
		Category:                "introduction",
	},
	{
		ID:                      "hr-conflict",
		Text:                    "Describe a time you had a conflict with a colleague and how you resolved it.",
		Type:                    models.QuestionBehavioral,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"conflict resolution", "empathy", "communication"},
		ExpectedDurationSeconds: 120,
		Category:                "teamwork",
	},
	{
		ID:                      "hr-failure",
		Text:                    "Tell me about a project that failed. What did you learn from it?",
		Type:                    models.QuestionBehavioral,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"self-awareness", "resilience"},
		ExpectedDurationSeconds: 120,
		Category:                "growth",
	},
	{
		ID:                      "hr-motivation",
		Text:                    "Why do you want to work in this role, and what motivates you day to day?",
		Type:                    models.QuestionBehavioral,
		Difficulty:              "easy",
		SkillsEvaluated:         []string{"motivation", "communication"},
		ExpectedDurationSeconds: 90,
		Category:                "motivation",
	},
	{
		ID:                      "hr-pressure",
		Text:                    "Describe a situation where you had to deliver under significant time pressure.",
		Type:                    models.QuestionSituational,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"prioritization", "stress management"},
		ExpectedDurationSeconds: 120,
		Category:                "pressure",
	},
	{
		ID:                      "hr-leadership",
		Text:                    "Give an example of a time you led a team through a difficult change.",
		Type:                    models.QuestionBehavioral,
		Difficulty:              "hard",
		SkillsEvaluated:         []string{"leadership", "change management"},
		ExpectedDurationSeconds: 150,
		Category:                "leadership",
	},
}

var technicalQuestions = []models.Question{
	{
		ID:                      "tech-scaling",
		Text:                    "How would you design a service that must handle a tenfold increase in traffic?",
		Type:                    models.QuestionTechnical,
		Difficulty:              "hard",
		SkillsEvaluated:         []string{"system design", "scalability"},
		ExpectedDurationSeconds: 180,
		Category:                "system design",
	},
	{
		ID:                      "tech-debugging",
		Text:                    "Walk me through how you debug a production incident you have never seen before.",
		Type:                    models.QuestionTechnical,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"debugging", "methodology"},
		ExpectedDurationSeconds: 150,
		Category:                "operations",
	},
	{
		ID:                      "tech-tradeoffs",
		Text:                    "Describe a technical decision where you traded consistency for availability, or the reverse.",
		Type:                    models.QuestionTechnical,
		Difficulty:              "hard",
		SkillsEvaluated:         []string{"distributed systems", "judgment"},
		ExpectedDurationSeconds: 180,
		Category:                "architecture",
	},
	{
		ID:                      "tech-testing",
		Text:                    "How do you decide what to test, and at which level of the test pyramid?",
		Type:                    models.QuestionTechnical,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"testing", "quality"},
		ExpectedDurationSeconds: 120,
		Category:                "quality",
	},
	{
		ID:                      "tech-legacy",
		Text:                    "You inherit a large legacy codebase with no tests. Where do you start?",
		Type:                    models.QuestionSituational,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"refactoring", "pragmatism"},
		ExpectedDurationSeconds: 150,
		Category:                "maintenance",
	},
}

var aptitudeQuestions = []models.Question{
	{
		ID:                      "apt-estimation",
		Text:                    "Estimate how many coffee shops there are in a city of one million people, explaining your reasoning.",
		Type:                    models.QuestionCaseStudy,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"estimation", "structured thinking"},
		ExpectedDurationSeconds: 180,
		Category:                "estimation",
	},
	{
		ID:                      "apt-prioritize",
		Text:                    "You have five urgent tasks and time for two. How do you decide which to do?",
		Type:                    models.QuestionSituational,
		Difficulty:              "easy",
		SkillsEvaluated:         []string{"prioritization", "reasoning"},
		ExpectedDurationSeconds: 90,
		Category:                "prioritization",
	},
	{
		ID:                      "apt-market",
		Text:                    "A client's sales dropped 20% in one quarter. How would you structure an investigation into why?",
		Type:                    models.QuestionCaseStudy,
		Difficulty:              "hard",
		SkillsEvaluated:         []string{"analysis", "structured thinking"},
		ExpectedDurationSeconds: 180,
		Category:                "analysis",
	},
	{
		ID:                      "apt-ambiguity",
		Text:                    "Describe how you make progress when requirements are ambiguous and stakeholders disagree.",
		Type:                    models.QuestionSituational,
		Difficulty:              "medium",
		SkillsEvaluated:         []string{"ambiguity tolerance", "communication"},
		ExpectedDurationSeconds: 120,
		Category:                "ambiguity",
	},
}
