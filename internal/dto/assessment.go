package dto

type ProfileRequest struct {
	Profession string `json:"profession" binding:"required,notblank,max=200"`
	Field      string `json:"field" binding:"required,notblank,max=200"`
	Interests  string `json:"interests" binding:"required,notblank,max=500"`
}

type AnswerRequest struct {
	SessionID string `json:"session_id" binding:"required,notblank"`
	Answer    string `json:"answer" binding:"required,min=5,max=2000"`
}

type StartAssessmentResponse struct {
	SessionID string `json:"session_id"`
}

type ResultsResponse struct {
	PersonalityType  string         `json:"personality_type"`
	DetailedAnalysis string         `json:"detailed_analysis"`
	Raw              map[string]any `json:"raw,omitempty"`
}
