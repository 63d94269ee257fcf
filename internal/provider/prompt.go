package provider

import (
	"fmt"
	"strings"
	"text/template"
)

// SystemPrompt frames the model as a validator that answers in JSON.
const SystemPrompt = "You are a test execution validator. Analyze test cases and provide validation results in JSON format."

// PromptInput is the test case material placed into the validation prompt.
type PromptInput struct {
	Title          string
	Description    string
	Steps          string
	ExpectedResult string
	Priority       string
}

var validationTemplate = template.Must(template.New("validation").Parse(`Analyze this test case and validate if it's executable:

**Test Case Details:**
- Title: {{.Title}}
- Description: {{.Description}}
- Steps: {{.Steps}}
- Expected Result: {{.ExpectedResult}}
- Priority: {{.Priority}}

**Your Task:**
1. Validate if the test steps are clear and executable
2. Check if expected result is realistic
3. Identify any potential issues or missing information
4. List recommendations for improving the test case
5. Provide a validation result

**Response Format (JSON only):**
{
    "status": "Passed" or "Failed",
    "confidence": 0.0-1.0,
    "issues": ["list of issues found"],
    "recommendations": ["suggestions for improvement"],
    "error_message": "explanation if failed, null if passed"
}

Respond ONLY with valid JSON, no other text.`))

// BuildValidationPrompt renders the validation prompt for a test case.
func BuildValidationPrompt(in PromptInput) (Prompt, error) {
	var b strings.Builder
	if err := validationTemplate.Execute(&b, in); err != nil {
		return Prompt{}, fmt.Errorf("render validation prompt: %w", err)
	}
	return Prompt{System: SystemPrompt, User: b.String()}, nil
}
