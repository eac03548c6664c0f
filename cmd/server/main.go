package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"script2video/avatar"
	"script2video/config"
	"script2video/ffmpegcmd"
	"script2video/proc"
	"script2video/render"
	"script2video/scriptgen"
	"script2video/server"
	"script2video/stock"
	"script2video/store"
	"script2video/tts"
	"script2video/types"
	"script2video/visuals"
)

func main() {
	// Load .env for local dev; deployed environments set real env vars.
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	for _, dir := range cfg.Paths.All() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("create working dir")
		}
	}

	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	imageGenURL := os.Getenv("IMAGEGEN_WORKER_URL")
	groqKey := os.Getenv("GROQ_API_KEY")
	pexelsKey := os.Getenv("PEXELS_API_KEY")

	caps := types.Capabilities{
		PremiumVoice: elevenKey != "",
		ImageGen:     imageGenURL != "",
		ScriptGen:    groqKey != "",
		StockSearch:  pexelsKey != "",
	}
	log.Info().
		Bool("premium_voice", caps.PremiumVoice).
		Bool("image_gen", caps.ImageGen).
		Bool("script_gen", caps.ScriptGen).
		Bool("stock_search", caps.StockSearch).
		Msg("capabilities probed")

	ffmpeg := ffmpegcmd.NewExec(log)
	procRunner := proc.NewExecRunner(log)

	eleven := tts.NewElevenLabsClient(elevenKey, cfg.TTS.PremiumModel, cfg.TTS.DefaultVoice, log)
	synth := tts.NewSynthesizer(eleven, caps, procRunner, cfg.TTS.Command,
		time.Duration(cfg.TTS.TimeoutSec)*time.Second, cfg.Paths.GeneratedAudio, log)
	voices := tts.NewCatalog(eleven, caps, cfg.Paths.VoicesCacheFile(), log)

	imageGen := visuals.NewImageGenClient(imageGenURL, cfg.ImageGen.MaxRetries,
		time.Duration(cfg.ImageGen.TimeoutSec)*time.Second,
		cfg.ImageGen.Guidance, cfg.ImageGen.Steps, log)
	provider := visuals.NewProvider(cfg, caps, ffmpeg, imageGen, log)

	assembler := render.NewAssembler(cfg, synth, provider, ffmpeg, log)
	compositor := avatar.NewCompositor(cfg, ffmpeg, procRunner, log)
	renderer := render.NewRenderer(cfg, assembler, compositor, ffmpeg, log)

	scripts := scriptgen.New(groqKey, os.Getenv("GROQ_MODEL"), log)
	stockClient := stock.New(pexelsKey, log)

	history, err := store.Open(cfg.Paths.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open render history")
	}
	defer history.Close()

	srv := server.New(cfg, caps, renderer, voices, scripts, imageGen, stockClient, history, log)

	log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
