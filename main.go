// Package main provides the entry point for the polyvox CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/polyvox/polyvox/internal/audio"
	"github.com/polyvox/polyvox/internal/cache"
	"github.com/polyvox/polyvox/internal/encode"
	"github.com/polyvox/polyvox/internal/lang"
	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/synth"
	"github.com/polyvox/polyvox/internal/translate"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile       string
	sentence         string
	targetLanguage   string
	outputPath       string
	outputFormat     string
	translatorEngine string
	speechEngine     string
	voice            string
	speed            float64
	slow             bool
	play             bool
	noCache          bool

	rootCmd = &cobra.Command{
		Use:   "polyvox",
		Short: "Translate a sentence and speak it aloud",
		Long: paragraph(fmt.Sprintf(
			"\nTranslate a sentence into another language, %s, and save the result as an audio file.",
			keyword("synthesize speech"),
		)),
		Example: paragraph(
			"polyvox --sentence \"Hello\" --target_language spanish\n" +
				"polyvox -s \"Good morning\" -l italian -o morning.ogg -f ogg --play",
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	translatorEngine = viper.GetString("translator.engine")
	speechEngine = viper.GetString("speech.engine")
	outputFormat = viper.GetString("output.format")
	if !cmd.Flags().Changed("no-cache") {
		noCache = !viper.GetBool("cache.enabled")
	}
	if !cmd.Flags().Changed("voice") {
		voice = viper.GetString("speech.voice")
	}
	if !cmd.Flags().Changed("speed") {
		speed = viper.GetFloat64("speech.speed")
	}
	if !cmd.Flags().Changed("slow") {
		slow = viper.GetBool("speech.slow")
	}

	if !encode.SupportedFormat(outputFormat) {
		return fmt.Errorf("unsupported output format %q (supported: mp3, wav, ogg)", outputFormat)
	}
	if speed < 0.25 || speed > 4.0 {
		return fmt.Errorf("speed must be between 0.25 and 4.0, got %.2f", speed)
	}

	if outputPath != "" {
		expanded, err := homedir.Expand(outputPath)
		if err != nil {
			return fmt.Errorf("unable to expand output path: %w", err)
		}
		outputPath = expanded
	}
	return nil
}

func execute(cmd *cobra.Command, _ []string) error {
	if sentence == "" {
		return errors.New("--sentence is required")
	}
	if targetLanguage == "" {
		return fmt.Errorf("--target_language is required (supported: %s)", lang.Describe())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	audioCache, err := buildCache()
	if err != nil {
		return err
	}
	if audioCache != nil {
		defer func() {
			audioCache.LogStats()
			_ = audioCache.Close()
		}()
	}

	translator, err := translate.New(translate.Config{
		Engine:  translatorEngine,
		APIKey:  viper.GetString("openai.api_key"),
		Model:   viper.GetString("translator.model"),
		Retries: viper.GetInt("translator.retries"),
	})
	if err != nil {
		return err
	}

	synthesizer, err := synth.New(synth.Config{
		Engine: speechEngine,
		Voice:  voice,
		Speed:  speed,
		Slow:   slow,
		APIKey: viper.GetString("openai.api_key"),
		Model:  viper.GetString("speech.model"),
		Cache:  audioCache,
	})
	if err != nil {
		return err
	}

	encoder := encode.NewFFmpeg(encode.Config{
		Timeout: viper.GetDuration("timeouts.encode"),
	})
	if err := encoder.Available(); err != nil {
		return fmt.Errorf("%w (install ffmpeg and retry)", err)
	}

	cfg := pipeline.DefaultConfig()
	if d := viper.GetDuration("timeouts.translate"); d > 0 {
		cfg.TranslateTimeout = d
	}
	if d := viper.GetDuration("timeouts.synthesize"); d > 0 {
		cfg.SynthesizeTimeout = d
	}
	if d := viper.GetDuration("timeouts.encode"); d > 0 {
		cfg.EncodeTimeout = d
	}
	cfg.Encode = pipeline.EncodeSpec{Format: outputFormat, OutputPath: outputPath}

	orchestrator, err := pipeline.New(translator, synthesizer, encoder, cfg)
	if err != nil {
		return err
	}

	artifact, err := orchestrator.Run(ctx, sentence, targetLanguage)
	if err != nil {
		if stage := pipeline.FailedStage(err); stage != pipeline.StageNone {
			log.Error("run failed", "stage", stage, "err", err)
		}
		return err
	}

	printArtifact(cmd, artifact)

	if play {
		return playArtifact(ctx, artifact.Path)
	}
	return nil
}

// buildCache assembles the audio cache, or nothing when disabled.
// Cache trouble is never fatal: synthesis just runs uncached.
func buildCache() (*cache.Manager, error) {
	if noCache {
		return nil, nil
	}

	dir := viper.GetString("cache.dir")
	if dir == "" {
		scope := gap.NewScope(gap.User, "polyvox")
		d, err := scope.CacheDir()
		if err != nil {
			log.Warn("could not resolve cache directory, caching disabled", "err", err)
			return nil, nil
		}
		dir = filepath.Join(d, "audio")
	} else {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to expand cache directory: %w", err)
		}
		dir = expanded
	}

	cfg := cache.DefaultConfig(dir)
	if mb := viper.GetInt64("cache.max_size"); mb > 0 {
		cfg.DiskCapacity = mb << 20
	}
	if lvl := viper.GetInt("cache.compression"); lvl > 0 {
		cfg.CompressionLevel = lvl
	}

	m, err := cache.NewManager(cfg)
	if err != nil {
		log.Warn("could not open audio cache, caching disabled", "err", err)
		return nil, nil
	}
	return m, nil
}

func printArtifact(cmd *cobra.Command, artifact pipeline.EncodedArtifact) {
	line := artifact.Path
	if term.IsTerminal(int(os.Stdout.Fd())) {
		line = fmt.Sprintf("Wrote %s (%s, %s)",
			keyword(artifact.Path), artifact.Container, artifact.Duration.Round(10*time.Millisecond))
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}

func playArtifact(ctx context.Context, path string) error {
	player, err := audio.NewOtoPlayer()
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}
	return audio.NewFilePlayer(player).PlayFile(ctx, path)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&sentence, "sentence", "s", "", "sentence to translate and speak")
	rootCmd.Flags().StringVarP(&targetLanguage, "target_language", "l", "", fmt.Sprintf("target language (%s)", lang.Describe()))
	_ = rootCmd.RegisterFlagCompletionFunc("target_language",
		func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return lang.SupportedNames(), cobra.ShellCompDirectiveNoFileComp
		})
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default polyvox-<id>.<format>)")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "mp3", "output format (mp3/wav/ogg)")
	rootCmd.Flags().StringVar(&translatorEngine, "translator", "", "translation engine (lexicon/openai)")
	rootCmd.Flags().StringVar(&speechEngine, "tts", "", "speech engine (gtts/openai/mock)")
	rootCmd.Flags().StringVar(&voice, "voice", "", "voice override for the speech engine")
	rootCmd.Flags().Float64Var(&speed, "speed", 1.0, "speech rate multiplier (0.25 to 4.0)")
	rootCmd.Flags().BoolVar(&slow, "slow", false, "slow speech (gtts only)")
	rootCmd.Flags().BoolVarP(&play, "play", "p", false, "play the artifact after writing it")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the audio cache")

	// Config bindings
	_ = viper.BindPFlag("translator.engine", rootCmd.Flags().Lookup("translator"))
	_ = viper.BindPFlag("speech.engine", rootCmd.Flags().Lookup("tts"))
	_ = viper.BindPFlag("output.format", rootCmd.Flags().Lookup("format"))

	viper.SetDefault("translator.engine", "lexicon")
	viper.SetDefault("translator.model", "")
	viper.SetDefault("translator.retries", 2)
	viper.SetDefault("speech.engine", "gtts")
	viper.SetDefault("speech.voice", "")
	viper.SetDefault("speech.speed", 1.0)
	viper.SetDefault("speech.slow", false)
	viper.SetDefault("output.format", "mp3")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size", 100)
	viper.SetDefault("cache.compression", 3)
	viper.SetDefault("timeouts.translate", "30s")
	viper.SetDefault("timeouts.synthesize", "60s")
	viper.SetDefault("timeouts.encode", "30s")

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "polyvox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "polyvox")}, dirs...)
	}

	if c := os.Getenv("POLYVOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("polyvox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("polyvox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "polyvox.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
