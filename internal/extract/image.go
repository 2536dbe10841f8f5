package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const ocrInstruction = "Extract every piece of text visible in this image, " +
	"verbatim. Return only the extracted text with no commentary."

const ocrMaxTokens = 4096

var imageMIMEByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ocrImage base64-encodes the raw bytes and issues one vision completion
// request, returning the model's text verbatim.
func (d *Dispatcher) ocrImage(ctx context.Context, filename string, data []byte) (string, error) {
	mime := imageMIMEByExt[strings.ToLower(filepath.Ext(filename))]
	if mime == "" {
		mime = "image/png"
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     d.model,
		MaxTokens: ocrMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: ocrInstruction,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: fmt.Sprintf("data:%s;base64,%s", mime, encoded),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("image ocr: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("image ocr: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
