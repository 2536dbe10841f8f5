package extract

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// transcribe sends the whole byte stream to the speech-to-text service in
// one call and returns the full transcript.
func (d *Dispatcher) transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	resp, err := d.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filename, err)
	}
	return resp.Text, nil
}
