package services

import (
	"fmt"
	"strings"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildInterviewSystemPrompt creates the persona-specific system prompt that
// governs the whole mock interview.
func (pb *PromptBuilder) BuildInterviewSystemPrompt(interviewType models.InterviewType, jobTitle, company, location, jobDescription, cvText string, maxQuestions int) string {
	var persona string
	switch interviewType {
	case models.InterviewTechLead:
		persona = `You are a seasoned Tech Lead conducting a technical mock interview.
Focus your questions on: system design decisions, technical depth in the candidate's stated stack, debugging and problem-solving approach, code quality practices, and trade-off reasoning.`
	default:
		persona = `You are an experienced HR interviewer conducting a mock interview.
Focus your questions on: motivation for this role, behavioral situations (conflict, failure, teamwork), career goals, communication skills, and culture fit.`
	}

	var context strings.Builder
	if jobTitle != "" {
		fmt.Fprintf(&context, "\nRole: %s", jobTitle)
	}
	if company != "" {
		fmt.Fprintf(&context, "\nCompany: %s", company)
	}
	if location != "" {
		fmt.Fprintf(&context, "\nLocation: %s", location)
	}
	if jobDescription != "" {
		fmt.Fprintf(&context, "\n\nJob description:\n%s", jobDescription)
	}
	if cvText != "" {
		fmt.Fprintf(&context, "\n\nCandidate CV:\n%s", cvText)
	}

	return fmt.Sprintf(`%s
%s

Rules you must follow:
1. Introduce yourself exactly once, at the start of the interview.
2. Ask exactly one question per message. Never bundle questions.
3. Ask at most %d questions in total over the whole interview.
4. After the candidate answers your final question, thank them and end the interview politely. Do not ask anything further.
5. Stay in character at all times and keep a professional, encouraging tone.`,
		persona, context.String(), maxQuestions)
}

// BuildTurnInstruction is injected per exchange based on where the interview
// is and how substantial the candidate's answer was.
func (pb *PromptBuilder) BuildTurnInstruction(questionsAsked, maxQuestions, answerWords int) string {
	switch {
	case questionsAsked >= maxQuestions:
		return "[Instruction: the question limit has been reached. Do not ask another question. Briefly acknowledge the candidate's last answer, thank them, and close the interview politely.]"
	case answerWords < 10:
		return "[Instruction: the candidate's answer was very brief. Before moving on, ask them to elaborate on what they just said.]"
	default:
		return "[Instruction: acknowledge the answer briefly and ask your next question.]"
	}
}

// BuildContinuationInstruction asks the model to finish an apparently
// truncated reply.
func (pb *PromptBuilder) BuildContinuationInstruction() string {
	return "[Instruction: your previous message appears to have been cut off. Continue from exactly where you left off without repeating anything.]"
}

// BuildTailoringPrompt requests strict-JSON CV tailoring advice.
func (pb *PromptBuilder) BuildTailoringPrompt(cvText, jobText string) string {
	return fmt.Sprintf(`You are an expert career coach helping a candidate tailor their CV to a specific job.

JOB DESCRIPTION:
%s

CANDIDATE CV:
%s

Compare the CV against the job description and respond with ONLY a JSON object in exactly this shape, with no surrounding text or markdown:
{
  "missingKeywords": ["keywords from the job description absent from the CV"],
  "missingSkills": ["concrete technical skills the job wants that the CV does not show"],
  "suggestions": ["specific additions or rewrites, ordered by impact"],
  "improvements": ["general presentation improvements for this CV"]
}

Each array may be empty but must be present. Be specific and reference the actual texts.`,
		jobText, cvText)
}

// BuildFeedbackPrompt requests the structured end-of-interview evaluation.
func (pb *PromptBuilder) BuildFeedbackPrompt(transcript models.Transcript, interviewType models.InterviewType, jobTitle string) string {
	role := jobTitle
	if role == "" {
		role = "the target role"
	}

	return fmt.Sprintf(`You are an expert interviewer evaluating a completed mock %s interview for %s.

INTERVIEW TRANSCRIPT:
%s

Assess the candidate's performance across their answers. Respond with ONLY a JSON object in exactly this shape, with no surrounding text or markdown:
{
  "overall_score": <integer 0-100>,
  "strengths": ["..."],
  "weaknesses": ["..."],
  "recommendation": "Hire" | "No Hire" | "Maybe"
}`,
		interviewType, role, FormatTranscript(transcript))
}

// FormatTranscript renders a transcript as a labeled conversation.
func FormatTranscript(transcript models.Transcript) string {
	var b strings.Builder
	for _, turn := range transcript {
		label := "Candidate"
		if turn.Role == models.RoleInterviewer {
			label = "Interviewer"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", label, strings.TrimSpace(turn.Text))
	}
	return strings.TrimSpace(b.String())
}
