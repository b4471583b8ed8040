package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/gema-grader-api/internal/models"
)

const sectionRule = "================================================\n"

func section(builder *strings.Builder, title string) {
	builder.WriteString(sectionRule)
	builder.WriteString(title)
	builder.WriteString("\n")
	builder.WriteString(sectionRule)
}

// buildAnalysisSystemPrompt assembles the grading instructions. Block order matters: the reference
// answer and weightage come first so the detection and scoring rules can refer back to them.
func buildAnalysisSystemPrompt(reference string, weights models.RubricWeights) string {
	builder := strings.Builder{}
	builder.WriteString("You are a strict academic evaluator for a teacher analytics dashboard.\n")
	builder.WriteString("CRITICAL: You MUST output your response in JSON format.\n\n")

	if reference != "" {
		writeReferenceBlock(&builder, reference)
	}
	writeWeightBlock(&builder, weights)
	writeDetectionBlock(&builder)
	writeFactorBlock(&builder)
	writeOutputBlock(&builder)

	return builder.String()
}

func buildAnalysisUserPrompt(text string) string {
	return "Assignment text:\n\n" + text
}

func writeReferenceBlock(builder *strings.Builder, reference string) {
	section(builder, "REFERENCE ANSWER COMPARISON (PRIORITY)")
	builder.WriteString("The teacher has provided a REFERENCE ANSWER below.\n")
	builder.WriteString("You MUST use this as the absolute ground truth.\n\n")
	builder.WriteString("REFERENCE CONTENT:\n")
	builder.WriteString(reference)
	builder.WriteString("\n\nRules:\n")
	builder.WriteString("1. If relevant, score high (85+) for matching baseline.\n")
	builder.WriteString("2. Be strict if student contradicts the reference.\n")
	builder.WriteString("3. Mention the reference comparison in feedback.\n\n")
}

func writeWeightBlock(builder *strings.Builder, weights models.RubricWeights) {
	if weights.Custom {
		section(builder, "SCORING WEIGHTAGE (CUSTOM)")
		builder.WriteString("The teacher has specified custom weights for the overallScore:\n")
	} else {
		section(builder, "SCORING WEIGHTAGE (DEFAULT)")
	}
	builder.WriteString("- Relevance: " + formatNumber(weights.Relevance*100) + "%\n")
	builder.WriteString("- Understanding: " + formatNumber(weights.Understanding*100) + "%\n")
	builder.WriteString("- Logic: " + formatNumber(weights.Logic*100) + "%\n")
	builder.WriteString("- Structure: " + formatNumber(weights.Structure*100) + "%\n")
	builder.WriteString("- Clarity: " + formatNumber(weights.Clarity*100) + "%\n\n")
	builder.WriteString("Compute overallScore using:\n")
	builder.WriteString(weightFormula(weights))
	builder.WriteString("\n\n")
}

func weightFormula(weights models.RubricWeights) string {
	terms := []string{
		"(relevance * " + formatNumber(weights.Relevance) + ")",
		"(understanding * " + formatNumber(weights.Understanding) + ")",
		"(logic * " + formatNumber(weights.Logic) + ")",
		"(structure * " + formatNumber(weights.Structure) + ")",
		"(clarity * " + formatNumber(weights.Clarity) + ")",
	}
	return strings.Join(terms, " + ")
}

func writeDetectionBlock(builder *strings.Builder) {
	section(builder, "STEP 1: ASSIGNMENT DETECTION")
	builder.WriteString(`Before scoring, determine whether the document is a student assignment.

A document IS an assignment if:
- It contains questions and answers OR structured responses
- Looks like homework, classwork, or submitted academic work
- May include Q1, Answer, Explain, Discuss
- Can be typed OR handwritten (OCR text may be messy)

A document is NOT an assignment if it looks like:
- Notes or study material
- Question paper without answers
- Resume / CV
- Article or blog
- Book or syllabus content
- Slides
- Random essay without prompts

If there is NO clear Q&A structure, treat it as NOT an assignment.

`)
	section(builder, "IF NOT AN ASSIGNMENT")
	builder.WriteString(`Return ZERO for all scores.

Rules:
- Set isAssignment = false
- Set relevance, understanding, logic, structure, clarity = 0
- Set overallScore = 0
- Feedback must clearly state:
  1. This is not a student assignment
  2. What the document likely is (notes, article, etc.)

`)
	section(builder, "IF IT IS AN ASSIGNMENT")
	builder.WriteString("Set isAssignment = true and score it using the factors below.\n\n")
}

func writeFactorBlock(builder *strings.Builder) {
	section(builder, "EVALUATION FACTORS (USE ONLY THESE 5)")
	builder.WriteString(`1. relevance: How well the student addresses requirements.
2. understanding: Depth of subject knowledge shown.
3. logic: Logical flow and reasoning between ideas.
4. structure: Organization and structural integrity.
5. clarity: Language, grammar, and readable expression.

SCORING SCALE (0-100):
90–100 = Exceptional | 70–89 = Strong | 50–69 = Average
30–49 = Weak | 0–29 = Poor

`)
	section(builder, "SCORING LOGIC")
	builder.WriteString(`Provide a score (0–100) for each factor.
CRITICAL: overallScore MUST be a single numeric value (e.g., 85.5).
DO NOT output mathematical expressions or calculations like
"(80 * 0.2) + ..." inside the JSON.
Perform the math yourself and output ONLY THE RESULT.

Follow the weightage instruction provided above for overallScore.

Be conservative and avoid inflated scores.

`)
}

func writeOutputBlock(builder *strings.Builder) {
	section(builder, "METADATA & GRANULAR ANALYSIS")
	builder.WriteString(`1. studentName: Name if found.
2. studentId: Roll/ID if found.
3. questionsSolved: TOTAL number of questions successfully answered.
4. perQuestionFeedback: List of strings.
   - Each string MUST be exactly 1 sentence.
   - Structure: "Question N: [Specific problem/strength]."

`)
	section(builder, "STRICT OUTPUT FORMAT")
	builder.WriteString(`Return ONLY valid JSON.

{
  "isAssignment": true,
  "studentName": "",
  "studentId": "",
  "questionsSolved": 0,
  "perQuestionFeedback": [],
  "metrics": {
    "relevance": 0,
    "understanding": 0,
    "logic": 0,
    "structure": 0,
    "clarity": 0,
    "overallScore": 0
  },
  "feedback": "Overall 4-6 sentences on performance."
}
`)
}

// formatNumber renders at most four decimals without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}
