package models

type MatchResponse struct {
	Score float64 `json:"score"`
}

// TailoringSuggestions is always well-formed: every field is non-nil even
// when the AI response was unusable and the keyword fallback produced it.
type TailoringSuggestions struct {
	MissingKeywords []string `json:"missingKeywords"`
	MissingSkills   []string `json:"missingSkills"`
	Suggestions     []string `json:"suggestions"`
	Improvements    []string `json:"improvements"`
}

type TailorResponse struct {
	Suggestions TailoringSuggestions `json:"suggestions"`
}

type StartInterviewRequest struct {
	JobID         string `json:"jobId"`
	InterviewType string `json:"type"`
}

type StartInterviewResponse struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	UserText  string `json:"userText"`
}

type ChatResponse struct {
	Message        string `json:"message"`
	QuestionsAsked int    `json:"questionsAsked"`
}

type SessionHistoryResponse struct {
	SessionID      string        `json:"sessionId"`
	InterviewType  InterviewType `json:"interviewType"`
	Status         SessionStatus `json:"status"`
	QuestionsAsked int           `json:"questionsAsked"`
	ChatHistory    []Turn        `json:"chat_history"`
}
