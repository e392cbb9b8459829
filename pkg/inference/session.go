package inference

import (
	"context"
	"fmt"
	"strings"
)

// TotalQuestions is the number of assessment questions the service asks.
const TotalQuestions = 15

// MinAnswerLength is the shortest assessment answer accepted.
const MinAnswerLength = 5

// Assessor is the subset of the inference API a Session drives.
type Assessor interface {
	StartAssessment(ctx context.Context) (string, error)
	SubmitProfile(ctx context.Context, sessionID string, profile Profile) error
	GetQuestion(ctx context.Context, sessionID string) (*Question, error)
	SubmitAnswer(ctx context.Context, sessionID, answer string) (*AnswerResult, error)
	GetResults(ctx context.Context, sessionID string) (*Results, error)
}

// Step is the dialogue position of a Session.
type Step int

const (
	StepProfession Step = iota
	StepField
	StepInterests
	StepStarting
	StepAnswering
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepProfession:
		return "profession"
	case StepField:
		return "field"
	case StepInterests:
		return "interests"
	case StepStarting:
		return "starting"
	case StepAnswering:
		return "answering"
	case StepCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Reply is one bot message. PersonalityType is set only on the final result.
type Reply struct {
	Text            string
	PersonalityType string
}

// Session holds the whole assessment dialogue on the client side: the
// profile answers, the upstream session id and the question counter. The
// server keeps nothing.
type Session struct {
	api              Assessor
	step             Step
	profile          Profile
	sessionID        string
	profileSubmitted bool
	question         int
	result           *Results
}

func NewSession(api Assessor) *Session {
	return &Session{api: api}
}

func (s *Session) Step() Step { return s.step }
func (s *Session) SessionID() string { return s.sessionID }
func (s *Session) QuestionNumber() int { return s.question }
func (s *Session) Profile() Profile { return s.profile }
func (s *Session) Result() *Results { return s.result }

// Greeting is the first bot message of a fresh session.
func (s *Session) Greeting() Reply {
	return bot("Welcome! I'm your AI Personality Assessment Assistant. Before we begin, I need to know a bit about you. What is your profession?")
}

// Handle consumes one user message and returns the bot's replies. On an
// upstream error the step is left where it was so the same input can be
// retried.
func (s *Session) Handle(ctx context.Context, input string) ([]Reply, error) {
	value := strings.TrimSpace(input)

	switch s.step {
	case StepProfession, StepField, StepInterests:
		return s.handleProfile(ctx, value)
	case StepStarting:
		return s.start(ctx)
	case StepAnswering:
		return s.handleAnswer(ctx, value)
	default:
		s.reset()
		return []Reply{s.Greeting()}, nil
	}
}

func (s *Session) handleProfile(ctx context.Context, value string) ([]Reply, error) {
	if value == "" {
		return []Reply{bot("Please provide a valid response.")}, nil
	}

	switch s.step {
	case StepProfession:
		s.profile.Profession = value
		s.step = StepField
		return []Reply{bot(fmt.Sprintf("Great! As a %s, what field or industry do you work in?", value))}, nil

	case StepField:
		s.profile.Field = value
		s.step = StepInterests
		return []Reply{bot(fmt.Sprintf("Excellent! Now, what are your main interests or hobbies outside of your work in %s?", value))}, nil

	default:
		s.profile.Interests = value
		s.step = StepStarting
		replies := []Reply{bot("Perfect! I have your profile ready. Starting your personality assessment now...")}
		more, err := s.start(ctx)
		return append(replies, more...), err
	}
}

func (s *Session) start(ctx context.Context) ([]Reply, error) {
	if s.sessionID == "" {
		sid, err := s.api.StartAssessment(ctx)
		if err != nil {
			return nil, fmt.Errorf("start assessment: %w", err)
		}
		s.sessionID = sid
	}
	if !s.profileSubmitted {
		if err := s.api.SubmitProfile(ctx, s.sessionID, s.profile); err != nil {
			return nil, fmt.Errorf("submit profile: %w", err)
		}
		s.profileSubmitted = true
	}

	reply, err := s.nextQuestion(ctx)
	if err != nil {
		return nil, err
	}
	s.step = StepAnswering
	return []Reply{reply}, nil
}

func (s *Session) handleAnswer(ctx context.Context, value string) ([]Reply, error) {
	if len([]rune(value)) < MinAnswerLength {
		return []Reply{bot("Please provide a more detailed response (at least 5 characters) to help me understand your personality better.")}, nil
	}

	res, err := s.api.SubmitAnswer(ctx, s.sessionID, value)
	if apiErr, ok := AsAPIError(err); ok && apiErr.InvalidSessionState() {
		if err = s.api.SubmitProfile(ctx, s.sessionID, s.profile); err == nil {
			res, err = s.api.SubmitAnswer(ctx, s.sessionID, value)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("submit answer: %w", err)
	}

	if res.Completed || s.question >= TotalQuestions {
		replies := []Reply{bot("Thank you! Processing your final results...")}
		more, err := s.finish(ctx)
		return append(replies, more...), err
	}

	next, err := s.nextQuestion(ctx)
	if err != nil {
		return nil, err
	}
	return []Reply{bot("Thank you for your response!"), next}, nil
}

func (s *Session) finish(ctx context.Context) ([]Reply, error) {
	results, err := s.api.GetResults(ctx, s.sessionID)
	if err != nil {
		if apiErr, ok := AsAPIError(err); ok && apiErr.NotCompleted() {
			next, qerr := s.nextQuestion(ctx)
			if qerr != nil {
				return nil, qerr
			}
			return []Reply{
				bot("It seems the assessment is not fully completed. Let me try to get the next question for you."),
				next,
			}, nil
		}
		return nil, fmt.Errorf("get results: %w", err)
	}

	s.result = results
	s.step = StepCompleted
	return []Reply{
		{Text: StripMarkdown(results.DetailedAnalysis), PersonalityType: results.PersonalityType},
		bot("Would you like to take the assessment again? Send any message to begin a new session!"),
	}, nil
}

func (s *Session) nextQuestion(ctx context.Context) (Reply, error) {
	q, err := s.api.GetQuestion(ctx, s.sessionID)
	if apiErr, ok := AsAPIError(err); ok && apiErr.InvalidSessionState() {
		if err = s.api.SubmitProfile(ctx, s.sessionID, s.profile); err == nil {
			q, err = s.api.GetQuestion(ctx, s.sessionID)
		}
	}
	if err != nil {
		return Reply{}, fmt.Errorf("get question: %w", err)
	}

	if q.QuestionNumber > 0 {
		s.question = q.QuestionNumber
	} else {
		s.question++
	}
	return bot(fmt.Sprintf("Question %d of %d: %s", s.question, TotalQuestions, q.Question)), nil
}

func (s *Session) reset() {
	*s = Session{api: s.api}
}

func bot(text string) Reply {
	return Reply{Text: StripMarkdown(text)}
}

// StripMarkdown removes emphasis asterisks from bot text.
func StripMarkdown(text string) string {
	return strings.ReplaceAll(text, "*", "")
}
