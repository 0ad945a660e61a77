package foundry

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bud-foundry/foundry-go/pkg/core"
	"github.com/bud-foundry/foundry-go/pkg/core/types"
)

const (
	transcribeChunkSize   = 4096
	transcribeChunkPacing = 10 * time.Millisecond
	transcribeTimeout     = 30 * time.Second
	transcribeSettleTime  = 500 * time.Millisecond
	transcribeConcurrency = 3
)

// TranscribeService transcribes recorded audio files through a streaming
// session, pacing the upload like a live feed.
type TranscribeService struct {
	client *Client
}

// TranscribeOptions configure a file transcription. A nil Config uses the
// gateway defaults with the file's sample rate.
type TranscribeOptions struct {
	Config *types.STTConfig

	// Timeout bounds the whole transcription; defaults to 30s.
	Timeout time.Duration
}

// Transcription is the aggregated result of a file transcription.
type Transcription struct {
	// Text joins all final transcript segments in order.
	Text string
	// Confidence is taken from the last final segment.
	Confidence float64
	// Duration is the audio length derived from the file header.
	Duration time.Duration
	// Segments holds the individual final results.
	Segments []types.STTResult
}

// File transcribes one WAV file. Only 16-bit PCM files are accepted.
func (s *TranscribeService) File(ctx context.Context, path string, opts TranscribeOptions) (*Transcription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewTranscriptionError("read audio file", path, err)
	}
	audio, err := parseWAV(data)
	if err != nil {
		return nil, core.NewTranscriptionError(err.Error(), path, nil)
	}

	cfg := opts.Config
	if cfg == nil {
		defaults := types.DefaultSTTConfig()
		defaults.SampleRate = audio.sampleRate
		defaults.Channels = audio.channels
		cfg = &defaults
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = transcribeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := s.client.STT.Connect(ctx, STTOptions{Config: cfg})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	results := session.Results()

	group, ctx := errgroup.WithContext(ctx)
	uploadDone := make(chan struct{})
	group.Go(func() error {
		defer close(uploadDone)
		for offset := 0; offset < len(audio.frames); offset += transcribeChunkSize {
			end := offset + transcribeChunkSize
			if end > len(audio.frames) {
				end = len(audio.frames)
			}
			if err := session.SendAudio(audio.frames[offset:end]); err != nil {
				return err
			}
			select {
			case <-time.After(transcribeChunkPacing):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var segments []types.STTResult
	uploaded := false

collect:
	for {
		// After the upload completes and at least one final segment arrived,
		// a quiet period means the gateway is done.
		var settle <-chan time.Time
		if uploaded && len(segments) > 0 {
			settle = time.After(transcribeSettleTime)
		}

		select {
		case result, ok := <-results:
			if !ok {
				break collect
			}
			if result.IsFinal {
				segments = append(segments, result)
			}
		case <-uploadDone:
			uploaded = true
			uploadDone = nil
		case <-settle:
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && len(segments) == 0 {
		return nil, core.NewTranscriptionError("audio upload failed", path, err)
	}
	if len(segments) == 0 {
		return nil, core.NewTranscriptionError("no transcription received", path, ctx.Err())
	}

	texts := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment.Text != "" {
			texts = append(texts, segment.Text)
		}
	}
	last := segments[len(segments)-1]

	return &Transcription{
		Text:       strings.Join(texts, " "),
		Confidence: last.Confidence,
		Duration:   audio.duration(),
		Segments:   segments,
	}, nil
}

// Files transcribes several WAV files with bounded concurrency. Results are
// returned in input order; the first failure cancels the remaining work.
func (s *TranscribeService) Files(ctx context.Context, paths []string, opts TranscribeOptions) ([]*Transcription, error) {
	results := make([]*Transcription, len(paths))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(transcribeConcurrency)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			transcription, err := s.File(ctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = transcription
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// wavAudio is the decoded payload of a PCM WAV file.
type wavAudio struct {
	frames     []byte
	sampleRate int
	channels   int
}

func (w wavAudio) duration() time.Duration {
	bytesPerSecond := w.sampleRate * w.channels * 2
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(float64(len(w.frames)) / float64(bytesPerSecond) * float64(time.Second))
}

// parseWAV extracts 16-bit PCM frames from a RIFF/WAVE container.
func parseWAV(data []byte) (*wavAudio, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var audio wavAudio
	sawFormat := false

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, errors.New("truncated WAV chunk")
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errors.New("malformed fmt chunk")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported WAV format %d, want PCM", format)
			}
			audio.channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			audio.sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("unsupported sample width %d bits, want 16", bitsPerSample)
			}
			sawFormat = true
		case "data":
			audio.frames = data[body : body+chunkSize]
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !sawFormat {
		return nil, errors.New("missing fmt chunk")
	}
	if audio.frames == nil {
		return nil, errors.New("missing data chunk")
	}
	return &audio, nil
}
