package synth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/polyvox/polyvox/internal/lang"
	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/subproc"
)

const gttsBinary = "gtts-cli"

// maxMP3Size is a sanity bound on backend output.
const maxMP3Size = 50 << 20

// GTTSConfig configures the gtts-cli engine.
type GTTSConfig struct {
	// Slow enables the --slow flag.
	Slow bool

	// RequestsPerMinute rate-limits calls so Google does not block the
	// host. Zero means the default of 50.
	RequestsPerMinute int

	// Timeout bounds one gtts-cli invocation. Zero means 30s; the
	// call goes over the network so it gets a generous budget.
	Timeout time.Duration
}

// GTTS synthesizes speech through the gtts-cli tool, which speaks
// every language in the supported set. Output is MP3; the encoder
// stage transcodes it into the requested container.
type GTTS struct {
	slow    bool
	timeout time.Duration
	limiter *rate.Limiter
	runner  *subproc.Runner
}

// NewGTTS creates the gtts-cli engine.
func NewGTTS(cfg GTTSConfig) *GTTS {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 50
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GTTS{
		slow:    cfg.Slow,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		runner:  subproc.NewRunner(timeout),
	}
}

// Available reports whether gtts-cli is on PATH.
func (g *GTTS) Available() error {
	if err := subproc.LookPath(gttsBinary); err != nil {
		return fmt.Errorf("%w (install with: pip install gtts)", err)
	}
	return nil
}

// Synthesize implements pipeline.Synthesizer.
func (g *GTTS) Synthesize(ctx context.Context, text string, target lang.Language) (pipeline.SynthesisResult, error) {
	if err := g.Available(); err != nil {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: %v", pipeline.ErrVoiceUnavailable, err)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: rate limit wait cancelled: %v", pipeline.ErrSynthesis, err)
	}

	args := []string{text, "-l", target.Code}
	if g.slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", "-")

	mp3, err := g.runner.Run(ctx, subproc.Options{
		Name:    gttsBinary,
		Args:    args,
		Timeout: g.timeout,
	})
	if err != nil {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: %v", pipeline.ErrSynthesis, err)
	}
	if len(mp3) == 0 {
		return pipeline.SynthesisResult{}, fmt.Errorf("%w: gtts-cli produced no output", pipeline.ErrSynthesis)
	}
	if len(mp3) > maxMP3Size {
		return pipeline.SynthesisResult{}, fmt.Errorf(
			"%w: output too large: %d bytes", pipeline.ErrSynthesis, len(mp3))
	}

	return pipeline.SynthesisResult{
		Samples:   mp3,
		Channels:  1,
		CodecHint: "mp3",
	}, nil
}
