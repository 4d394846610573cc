// Package utils holds helpers shared by the messaging adapters.
package utils

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	ffmpeg_go "github.com/u2takey/ffmpeg-go"
)

// ErrFFmpegMissing is returned when no ffmpeg binary is on PATH.
var ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")

// ThumbnailOptions selects the frame and output width of a video preview.
type ThumbnailOptions struct {
	Frame int
	Width int
}

// DefaultThumbnail is the preview WhatsApp clients expect for video sends.
var DefaultThumbnail = ThumbnailOptions{Frame: 1, Width: 72}

// VideoThumbnail renders one JPEG frame of a video by piping it through
// ffmpeg.
func VideoThumbnail(content []byte, opts ThumbnailOptions) ([]byte, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty video")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, ErrFFmpegMissing
	}
	if opts.Width <= 0 {
		opts.Width = DefaultThumbnail.Width
	}

	inputReader, inputWriter := io.Pipe()
	outputReader, outputWriter := io.Pipe()

	go func() {
		_, err := inputWriter.Write(content)
		inputWriter.CloseWithError(err)
	}()

	var stderr bytes.Buffer
	go func() {
		err := ffmpeg_go.Input("pipe:0").
			Filter("scale", ffmpeg_go.Args{fmt.Sprintf("%d:-1", opts.Width)}).
			Filter("select", ffmpeg_go.Args{fmt.Sprintf("gte(n,%d)", opts.Frame)}).
			Output("pipe:", ffmpeg_go.KwArgs{"vframes": 1, "format": "image2", "vcodec": "mjpeg"}).
			WithInput(inputReader).
			WithOutput(outputWriter).
			WithErrorOutput(&stderr).
			OverWriteOutput().
			Run()
		// Unblock the writer if ffmpeg exits before consuming all input.
		inputReader.Close()
		outputWriter.CloseWithError(err)
	}()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(outputReader); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, lastLine(stderr.String()))
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("no thumbnail data returned")
	}
	return buf.Bytes(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
