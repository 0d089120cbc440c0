package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/cognichat/internal/dataset"
)

// DefaultMaxRows is the preview size used when the caller has no preference.
const DefaultMaxRows = 10

// Dispatch classifies query, runs the matching aggregation over ds and returns the answer.
// maxRows bounds the summary preview table. Dispatch never panics and never fails:
// analysis errors come back as a text response.
func Dispatch(query string, ds *dataset.Dataset, maxRows int) (resp Response) {
	var b branch
	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(&AnalysisError{Rule: b.name, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	b, ok := classify(query)
	if !ok {
		return helpResponse(query)
	}

	if ds == nil {
		return errorResponse(&AnalysisError{Rule: b.name, Err: errors.New("no dataset loaded")})
	}

	resp, err := b.analyze(ds, max(maxRows, 0))
	if err != nil {
		return errorResponse(&AnalysisError{Rule: b.name, Err: err})
	}
	resp.Role = RoleAssistant
	resp.Rule = b.name
	return resp
}

// IsError reports whether resp describes a failed analysis.
func IsError(resp Response) bool {
	return resp.Rule == "" && strings.HasPrefix(resp.Content, errorPrefix)
}

const errorPrefix = "❌ I encountered an error: "

func errorResponse(err *AnalysisError) Response {
	return Response{
		Role: RoleAssistant,
		Content: errorPrefix + err.Error() +
			"\n\nTry asking for a 'summary' or be more specific about what you'd like to analyze.",
	}
}

// ExampleQuestions are the suggestions listed by the help response.
var ExampleQuestions = []string{
	"Show me revenue trends over time",
	"Which product category generates the most revenue?",
	"What are the top performing regions?",
	"Compare new vs returning customers",
	"Give me a summary of the data",
	"Show me customer ratings analysis",
}

func helpResponse(query string) Response {
	content := fmt.Sprintf(`🤔 I'd love to help analyze: "%s"

Here are some things you can ask me:

**📈 Revenue & Sales:**
• "%s"
• "%s"

**🏆 Performance:**
• "%s"
• "%s"

**📊 General:**
• "%s"
• "%s"

What would you like to explore?`, query,
		ExampleQuestions[0], ExampleQuestions[1],
		ExampleQuestions[2], ExampleQuestions[3],
		ExampleQuestions[4], ExampleQuestions[5])

	return Response{Role: RoleAssistant, Content: content}
}
