package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/nhattan2005/AI-Job-Board-sub001/internal/errs"
	"github.com/nhattan2005/AI-Job-Board-sub001/internal/models"
)

// TailoringService produces structured advice on adapting a CV to a job
// description. When the AI response cannot be parsed it falls back to a
// deterministic keyword diff, so a well-formed result is always returned.
type TailoringService interface {
	ComputeTailoringSuggestions(ctx context.Context, cvText, jobText string) (models.TailoringSuggestions, error)
}

type tailoringService struct {
	generator     TextGenerator
	promptBuilder *PromptBuilder
}

func NewTailoringService(generator TextGenerator) TailoringService {
	return &tailoringService{
		generator:     generator,
		promptBuilder: NewPromptBuilder(),
	}
}

// ComputeTailoringSuggestions implements TailoringService. Transport-level
// AI failures (quota, timeout, credentials) are surfaced to the caller;
// unparseable responses are recovered via the keyword fallback.
func (t *tailoringService) ComputeTailoringSuggestions(ctx context.Context, cvText, jobText string) (models.TailoringSuggestions, error) {
	cvText = strings.TrimSpace(cvText)
	jobText = strings.TrimSpace(jobText)
	if cvText == "" {
		return models.TailoringSuggestions{}, errs.New(errs.KindInvalidInput, "cv text must not be empty")
	}
	if jobText == "" {
		return models.TailoringSuggestions{}, errs.New(errs.KindInvalidInput, "job description must not be empty")
	}

	prompt := t.promptBuilder.BuildTailoringPrompt(cvText, jobText)

	response, err := t.generator.GenerateText(ctx, prompt, 0.3)
	if err != nil {
		return models.TailoringSuggestions{}, err
	}

	if suggestions, ok := parseTailoringResponse(response); ok {
		return suggestions, nil
	}

	log.Printf("⚠️  Tailoring response was not valid JSON (%d chars), using keyword fallback", len(response))
	return fallbackTailoringSuggestions(cvText, jobText), nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseTailoringResponse tries a direct parse of the fence-stripped response,
// then a parse of the first {...} block found anywhere in it.
func parseTailoringResponse(response string) (models.TailoringSuggestions, bool) {
	cleaned := stripCodeFences(response)

	var suggestions models.TailoringSuggestions
	if err := json.Unmarshal([]byte(cleaned), &suggestions); err == nil {
		return normalizeSuggestions(suggestions), true
	}

	if match := jsonObjectPattern.FindString(cleaned); match != "" {
		if err := json.Unmarshal([]byte(match), &suggestions); err == nil {
			return normalizeSuggestions(suggestions), true
		}
	}

	return models.TailoringSuggestions{}, false
}

// stripCodeFences removes markdown code-fence wrappers LLMs like to add.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSpace(text)
		if idx := strings.LastIndex(text, "```"); idx != -1 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(text, "`"))
}

func normalizeSuggestions(s models.TailoringSuggestions) models.TailoringSuggestions {
	if s.MissingKeywords == nil {
		s.MissingKeywords = []string{}
	}
	if s.MissingSkills == nil {
		s.MissingSkills = []string{}
	}
	if s.Suggestions == nil {
		s.Suggestions = []string{}
	}
	if s.Improvements == nil {
		s.Improvements = []string{}
	}
	return s
}

// stopWords filters common English words that add noise to the keyword diff.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
	"experience": true, "years": true, "strong": true, "skills": true,
	"candidate": true, "candidates": true, "position": true, "required": true,
}

// techSkillsVocab is the fixed vocabulary used to separate concrete technical
// skills from ordinary vocabulary in the fallback diff.
var techSkillsVocab = map[string]bool{
	"go": true, "golang": true, "python": true, "java": true, "javascript": true,
	"typescript": true, "react": true, "vue": true, "angular": true, "node.js": true,
	"c++": true, "c#": true, "rust": true, "kotlin": true, "swift": true, "ruby": true,
	"php": true, "scala": true, "sql": true, "postgresql": true, "mysql": true,
	"mongodb": true, "redis": true, "elasticsearch": true, "kafka": true,
	"rabbitmq": true, "docker": true, "kubernetes": true, "terraform": true,
	"aws": true, "azure": true, "gcp": true, "linux": true, "git": true,
	"graphql": true, "grpc": true, "rest": true, "microservices": true,
	"ci/cd": true, "jenkins": true, "ansible": true, "prometheus": true,
	"grafana": true, "spark": true, "hadoop": true, "tensorflow": true,
	"pytorch": true, "django": true, "flask": true, "spring": true, "rails": true,
	"html": true, "css": true, "sass": true, "webpack": true, "nginx": true,
}

const maxFallbackKeywords = 15

// fallbackTailoringSuggestions is the deterministic recovery path: a
// frequency-ranked diff of job keywords against the CV keyword set. It never
// fails and every field of the result is non-nil.
func fallbackTailoringSuggestions(cvText, jobText string) models.TailoringSuggestions {
	cvKeywords := extractKeywords(cvText)
	jobFrequency := keywordFrequency(jobText)

	type ranked struct {
		word  string
		count int
	}
	var missing []ranked
	for word, count := range jobFrequency {
		if !cvKeywords[word] {
			missing = append(missing, ranked{word, count})
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].count != missing[j].count {
			return missing[i].count > missing[j].count
		}
		return missing[i].word < missing[j].word
	})

	missingKeywords := []string{}
	missingSkills := []string{}
	for _, m := range missing {
		if techSkillsVocab[m.word] {
			missingSkills = append(missingSkills, m.word)
			continue
		}
		if len(missingKeywords) < maxFallbackKeywords {
			missingKeywords = append(missingKeywords, m.word)
		}
	}

	suggestions := []string{}
	for _, skill := range missingSkills {
		suggestions = append(suggestions, fmt.Sprintf("The job description emphasizes %q. If you have experience with it, make it visible in your CV.", skill))
	}
	if len(missingKeywords) > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Consider working these terms from the job description into your CV where they honestly apply: %s.", strings.Join(topN(missingKeywords, 5), ", ")))
	}

	improvements := []string{
		"Mirror the vocabulary of the job description in your CV where it genuinely matches your experience.",
		"Lead each role with concrete, quantified achievements rather than responsibilities.",
	}

	return models.TailoringSuggestions{
		MissingKeywords: missingKeywords,
		MissingSkills:   missingSkills,
		Suggestions:     suggestions,
		Improvements:    improvements,
	}
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func extractKeywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	for word := range keywordFrequency(text) {
		keywords[word] = true
	}
	return keywords
}

// keywordFrequency tokenizes text into lowercase keywords with counts,
// skipping stop words. Treats + # . as word characters so tech terms like
// "c++", "c#" and "node.js" survive tokenization.
func keywordFrequency(text string) map[string]int {
	freq := make(map[string]int)
	var word strings.Builder

	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if techSkillsVocab[w] || (len([]rune(w)) >= 3 && !stopWords[w]) {
			freq[w]++
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' || r == '/' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return freq
}
