// Package report turns extracted text into a structured Markdown report via
// a single completion call.
package report

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrGenerationFailed marks any failure of the completion call, including
// input too long for the upstream model.
var ErrGenerationFailed = errors.New("report generation failed")

// systemPrompt enumerates the eight mandatory report sections. The model's
// response is returned verbatim; template conformance is not validated.
const systemPrompt = `You are a detail-oriented analyst working for a smart content platform.
Your task is to analyze a piece of content text and produce a clear report in Markdown (.md)
format that summarizes it under 8 main headings, making it easy to learn from and act on.

The report MUST follow the structure below, with ALL headings present:

### 1. Topic Summary (3-5 Sentences)
[State the overall purpose and main theme of the content in 3-5 clear sentences.]

### 2. Section Map (Navigation)
[List the main headings and logical flow of the content as a bullet list.]
* Section 1 name
* Section 2 name
* ...

### 3. Key Terms Glossary (Markdown Table)
[Answer "which key terms do I need to know in this content?" with a two-column
Markdown table of terms and short definitions. Include at least 5 terms.]

| Term | Definition |
|---|---|
| Information security | Protecting sensitive data against unauthorized access. |
| ... | ... |

### 4. Key Takeaways (List)
[Write the 3 main principles to remember after finishing this content, as short bullet points.]
* Main principle 1
* Main principle 2
* ...

### 5. Practical Application (1 Paragraph)
[Write one paragraph with a concrete suggestion for applying this knowledge in real life or at work.]

### 6. Useful Resources and Tools (List)
[Suggest 3-5 additional resources, tools, programs, sites or experts related to the topic.]
* Resource/tool 1 (short description)
* Resource/tool 2 (short description)
* ...

### 7. Mini Quiz (3-5 Questions)
[Prepare 3-5 short-answer or multiple-choice questions that test understanding.
Put the CORRECT ANSWER in parentheses directly below each question.]
1. Question 1? (Answer: ...)
2. Question 2? (Answer: ...)
3. Question 3? (Answer: ...)

### 8. Personal Notes (Blank)
[Leave this section empty for the user's own notes. Write only the
'### 8. Personal Notes' heading and leave the space below it blank.]
`

const userPromptPrefix = "Please analyze the following content text and produce the report:\n\n"

// Generator issues the single summarization call. No retry, no streaming,
// no chunking of oversized input.
type Generator struct {
	client *openai.Client
	model  string
}

func NewGenerator(client *openai.Client, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Summarize builds exactly two messages (the fixed system instruction and
// the literal extracted text) and returns the model's raw Markdown response.
func (g *Generator) Summarize(ctx context.Context, text string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPromptPrefix + text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
