package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/polyvox/polyvox/internal/lang"
	"github.com/polyvox/polyvox/internal/pipeline"
)

const (
	defaultSpeechModel = "tts-1"
	defaultSpeechVoice = "alloy"

	// The PCM response format is fixed by the API.
	openaiSampleRate = 24000
	openaiChannels   = 1
)

// speechVoices is the voice set the speech endpoint accepts. All of
// them are multilingual, so language selection happens through the
// input text alone.
var speechVoices = map[string]bool{
	"alloy": true, "ash": true, "coral": true, "echo": true,
	"fable": true, "onyx": true, "nova": true, "sage": true,
	"shimmer": true,
}

// OpenAI synthesizes speech through the OpenAI audio endpoint,
// requesting raw PCM so the encoder gets intermediate audio rather
// than a finished container.
type OpenAI struct {
	client openai.Client
	model  string
	voice  string
	speed  float64
}

// NewOpenAI creates the OpenAI speech engine. An empty voice selects
// the default; an unknown one fails up front rather than per request.
func NewOpenAI(apiKey, model, voice string, speed float64) (*OpenAI, error) {
	if model == "" {
		model = defaultSpeechModel
	}
	if voice == "" {
		voice = defaultSpeechVoice
	}
	if !speechVoices[strings.ToLower(voice)] {
		return nil, fmt.Errorf("%w: %q is not an OpenAI speech voice", pipeline.ErrVoiceUnavailable, voice)
	}

	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		voice:  strings.ToLower(voice),
		speed:  speed,
	}, nil
}

// Synthesize implements pipeline.Synthesizer.
func (s *OpenAI) Synthesize(ctx context.Context, text string, _ lang.Language) (pipeline.SynthesisResult, error) {
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          s.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
		Speed:          openai.Float(s.speed),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return pipeline.SynthesisResult{}, fmt.Errorf(
				"%w: openai status %d: %s",
				pipeline.ErrSynthesis, apiErr.StatusCode, strings.TrimSpace(apiErr.Message))
		}
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: %v", pipeline.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	samples, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: reading audio stream: %v", pipeline.ErrSynthesis, err)
	}
	if len(samples) == 0 {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: empty audio stream", pipeline.ErrSynthesis)
	}

	return pipeline.SynthesisResult{
		Samples:    samples,
		SampleRate: openaiSampleRate,
		Channels:   openaiChannels,
		CodecHint:  "pcm_s16le",
	}, nil
}
