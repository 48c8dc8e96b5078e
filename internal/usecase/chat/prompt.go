package chat

import "strings"

// render substitutes {question}, {context} and {no_context} in one pass, so
// placeholders inside the substituted values are left untouched.
func render(template string, question, context, noContext string) string {
	return strings.NewReplacer(
		"{question}", question,
		"{context}", context,
		"{no_context}", noContext,
	).Replace(template)
}
