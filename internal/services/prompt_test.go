package services

import (
	"strings"
	"testing"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

func TestBuildInterviewSystemPromptPersonas(t *testing.T) {
	pb := NewPromptBuilder()

	hr := pb.BuildInterviewSystemPrompt(models.InterviewHR, "Backend Engineer", "Acme", "Hanoi", "Build Go services.", "", 5)
	if !strings.Contains(hr, "HR interviewer") {
		t.Fatalf("HR prompt must set the HR persona: %s", hr)
	}
	if !strings.Contains(hr, "behavioral") {
		t.Fatalf("HR prompt must steer toward behavioral questions")
	}

	tech := pb.BuildInterviewSystemPrompt(models.InterviewTechLead, "Backend Engineer", "Acme", "Hanoi", "Build Go services.", "", 5)
	if !strings.Contains(tech, "Tech Lead") {
		t.Fatalf("Tech Lead prompt must set the technical persona: %s", tech)
	}
	if !strings.Contains(tech, "system design") {
		t.Fatalf("Tech Lead prompt must steer toward design questions")
	}

	for _, prompt := range []string{hr, tech} {
		if !strings.Contains(prompt, "Backend Engineer") || !strings.Contains(prompt, "Acme") {
			t.Fatalf("prompt must carry the job context: %s", prompt)
		}
		if !strings.Contains(prompt, "at most 5 questions") {
			t.Fatalf("prompt must state the question budget: %s", prompt)
		}
		if !strings.Contains(prompt, "one question per message") {
			t.Fatalf("prompt must forbid bundled questions: %s", prompt)
		}
	}
}

func TestBuildInterviewSystemPromptOmitsEmptyContext(t *testing.T) {
	pb := NewPromptBuilder()

	prompt := pb.BuildInterviewSystemPrompt(models.InterviewHR, "", "", "", "Ad-hoc description.", "", 5)
	if strings.Contains(prompt, "Role:") || strings.Contains(prompt, "Company:") {
		t.Fatalf("empty context fields must be omitted: %s", prompt)
	}
	if !strings.Contains(prompt, "Ad-hoc description.") {
		t.Fatalf("job description must be present")
	}
}

func TestBuildTurnInstructionBranches(t *testing.T) {
	pb := NewPromptBuilder()

	closing := pb.BuildTurnInstruction(5, 5, 50)
	if !strings.Contains(closing, "Do not ask another question") {
		t.Fatalf("expected closing instruction at the budget: %s", closing)
	}

	elaborate := pb.BuildTurnInstruction(2, 5, 4)
	if !strings.Contains(elaborate, "elaborate") {
		t.Fatalf("expected elaboration instruction for a short answer: %s", elaborate)
	}

	next := pb.BuildTurnInstruction(2, 5, 50)
	if !strings.Contains(next, "next question") {
		t.Fatalf("expected next-question instruction: %s", next)
	}

	// The budget branch wins over the short-answer branch.
	both := pb.BuildTurnInstruction(6, 5, 3)
	if !strings.Contains(both, "Do not ask another question") {
		t.Fatalf("budget exhaustion must take precedence: %s", both)
	}
}

func TestFormatTranscriptLabels(t *testing.T) {
	transcript := models.Transcript{
		{Role: models.RoleCandidate, Text: "Start the interview"},
		{Role: models.RoleInterviewer, Text: "Welcome! Tell me about yourself."},
		{Role: models.RoleCandidate, Text: "I build Go services."},
	}

	got := FormatTranscript(transcript)
	if !strings.Contains(got, "Candidate: Start the interview") {
		t.Fatalf("candidate turns must be labeled: %s", got)
	}
	if !strings.Contains(got, "Interviewer: Welcome! Tell me about yourself.") {
		t.Fatalf("interviewer turns must be labeled: %s", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("transcript must be trimmed: %q", got)
	}
}

func TestBuildFeedbackPromptShape(t *testing.T) {
	pb := NewPromptBuilder()

	transcript := models.Transcript{
		{Role: models.RoleCandidate, Text: "Start the interview"},
		{Role: models.RoleInterviewer, Text: "Tell me about a conflict you resolved."},
	}

	prompt := pb.BuildFeedbackPrompt(transcript, models.InterviewHR, "Backend Engineer")
	for _, field := range []string{"overall_score", "strengths", "weaknesses", "recommendation"} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("feedback prompt must request %q: %s", field, prompt)
		}
	}
	if !strings.Contains(prompt, "Backend Engineer") {
		t.Fatalf("feedback prompt must mention the role")
	}
	if !strings.Contains(prompt, "Candidate: Start the interview") {
		t.Fatalf("feedback prompt must embed the transcript")
	}
}
