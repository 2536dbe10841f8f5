package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	youtube "github.com/kkdai/youtube/v2"
)

const remoteAudioFile = "audio.m4a"

// ExtractRemoteVideo downloads the best audio-only stream of a remote video
// to a private temporary directory, transcribes it, and removes the file
// and its directory on every exit path.
func (d *Dispatcher) ExtractRemoteVideo(ctx context.Context, rawURL string) (string, error) {
	client := youtube.Client{}

	video, err := client.GetVideoContext(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	formats := video.Formats.Type("audio")
	if len(formats) == 0 {
		return "", fmt.Errorf("%w: no audio stream", ErrSourceUnavailable)
	}
	formats.Sort()
	format := &formats[0]

	tempDir, err := os.MkdirTemp("", "remote-audio-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempPath := filepath.Join(tempDir, remoteAudioFile)
	if err := downloadStream(ctx, &client, video, format, tempPath); err != nil {
		return "", err
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return "", fmt.Errorf("read downloaded audio: %w", err)
	}
	return d.transcribe(ctx, remoteAudioFile, data)
}

func downloadStream(ctx context.Context, client *youtube.Client, video *youtube.Video, format *youtube.Format, dst string) error {
	stream, _, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer stream.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(out, stream); err != nil {
		_ = out.Close()
		return fmt.Errorf("download audio: %w", err)
	}
	return out.Close()
}
