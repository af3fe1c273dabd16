package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/synth"
	"github.com/polyvox/polyvox/internal/translate"
)

// writeEncoder stands in for ffmpeg so the full pipeline runs with
// the real lexicon translator and mock synthesizer.
type writeEncoder struct{}

func (writeEncoder) Available() error { return nil }

func (writeEncoder) Encode(_ context.Context, audio pipeline.SynthesisResult, spec pipeline.EncodeSpec) (pipeline.EncodedArtifact, error) {
	if err := os.WriteFile(spec.OutputPath, audio.Samples, 0o644); err != nil {
		return pipeline.EncodedArtifact{}, err
	}
	return pipeline.EncodedArtifact{
		Path:      spec.OutputPath,
		Container: spec.Format,
		Duration:  audio.Duration(),
	}, nil
}

func TestPipeline_HelloSpanish(t *testing.T) {
	translator, err := translate.New(translate.Config{Engine: translate.EngineLexicon})
	if err != nil {
		t.Fatal(err)
	}
	synthesizer, err := synth.New(synth.Config{Engine: synth.EngineMock})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "hola.mp3")
	cfg := pipeline.DefaultConfig()
	cfg.Encode = pipeline.EncodeSpec{Format: "mp3", OutputPath: out}

	o, err := pipeline.New(translator, synthesizer, writeEncoder{}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	artifact, err := o.Run(context.Background(), "Hello", "spanish")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if artifact.Duration <= 0 {
		t.Error("artifact should have non-zero duration")
	}
	info, err := os.Stat(artifact.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}
}

func TestPipeline_UnknownPhraseFailsInTranslation(t *testing.T) {
	translator, err := translate.New(translate.Config{Engine: translate.EngineLexicon})
	if err != nil {
		t.Fatal(err)
	}
	synthesizer, err := synth.New(synth.Config{Engine: synth.EngineMock})
	if err != nil {
		t.Fatal(err)
	}

	cfg := pipeline.DefaultConfig()
	cfg.Encode = pipeline.EncodeSpec{Format: "mp3", OutputPath: filepath.Join(t.TempDir(), "x.mp3")}
	o, err := pipeline.New(translator, synthesizer, writeEncoder{}, cfg)
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.Run(context.Background(), "The quick brown fox jumps over the lazy dog", "spanish")
	if !errors.Is(err, pipeline.ErrPhraseNotFound) {
		t.Fatalf("error = %v, want ErrPhraseNotFound", err)
	}
	if stage := pipeline.FailedStage(err); stage != pipeline.StageTranslation {
		t.Errorf("failed stage = %s, want translation", stage)
	}
}
