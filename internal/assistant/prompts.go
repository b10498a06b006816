package assistant

import (
	"bytes"
	"text/template"
)

var (
	defineTmpl = template.Must(template.New("define").Parse(
		`I need a concise definition for the word or phrase "{{.Word}}" as it appears in the following context:

"{{.Context}}"

Please provide a clear, context-specific definition in 3-5 sentences that explains what "{{.Word}}" means in this specific context.
Don't include phrases like "In this context" or "Based on the text" in your response.
Just provide the definition directly.`))

	chatTmpl = template.Must(template.New("chat").Parse(
		`You are a helpful but friendly document assistant. The user has uploaded a document and can ask questions about it or discuss general topics. Here is the document content:

{{if .Document}}{{.Document}}{{else}}No document content provided.{{end}}

Please provide a helpful response. If the question relates to the document, answer based on its content while maintaining general knowledge accuracy. For non-document questions, provide a helpful general response to the user's questions. Keep responses concise (2-5 sentences).`))

	suggestTmpl = template.Must(template.New("suggest").Parse(
		`You recommend one piece of reading material for a reader practising on the topic below.
Pick a real, publicly available article or document and describe it in one or two sentences.
The category is a single lowercase word such as "academic", "casual", "news" or "technical".

Return ONLY a JSON object (no markdown, no commentary) that conforms to this schema:
{{.Schema}}`))
)

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	// Templates are static and data is plain strings; Execute cannot fail.
	_ = t.Execute(&buf, data)
	return buf.String()
}

// DefinePrompt renders the definition request for word in context.
func DefinePrompt(word, context string) string {
	return render(defineTmpl, struct{ Word, Context string }{word, context})
}

// ChatSystemPrompt renders the instruction a chat session is seeded with.
func ChatSystemPrompt(document string) string {
	return render(chatTmpl, struct{ Document string }{document})
}

// ChatUserMessage formats a user turn.
func ChatUserMessage(message string) string {
	return "User: " + message
}

func suggestPrompt(schema string) string {
	return render(suggestTmpl, struct{ Schema string }{schema})
}
