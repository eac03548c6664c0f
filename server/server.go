// Package server exposes the render pipeline over an HTTP API.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"script2video/config"
	"script2video/render"
	"script2video/scriptgen"
	"script2video/stock"
	"script2video/store"
	"script2video/tts"
	"script2video/types"
	"script2video/visuals"
)

// Server wires the pipeline components behind HTTP handlers.
type Server struct {
	cfg      *config.Config
	caps     types.Capabilities
	renderer *render.Renderer
	voices   *tts.Catalog
	scripts  *scriptgen.Generator
	images   *visuals.ImageGenClient
	stock    *stock.Client
	history  *store.Store
	log      zerolog.Logger
}

func New(cfg *config.Config, caps types.Capabilities, renderer *render.Renderer,
	voices *tts.Catalog, scripts *scriptgen.Generator, images *visuals.ImageGenClient,
	stockClient *stock.Client, history *store.Store, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		caps:     caps,
		renderer: renderer,
		voices:   voices,
		scripts:  scripts,
		images:   images,
		stock:    stockClient,
		history:  history,
		log:      log.With().Str("component", "server").Logger(),
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Post("/split", s.handleSplit)
		r.Get("/voices", s.handleVoices)
		r.Post("/generate_script", s.handleGenerateScript)
		r.Post("/generate_single_image", s.handleGenerateSingleImage)
		r.Post("/generate_images", s.handleGenerateImages)
		r.Get("/stock_search", s.handleStockSearch)
		r.Post("/download_stock", s.handleDownloadStock)
		r.Post("/music/upload", s.handleMusicUpload)
		r.Post("/upload_background", s.handleUploadBackground)
		r.Get("/download_image", s.handleDownloadImage)
		r.Post("/render", s.handleRender)
		r.Get("/download", s.handleDownload)
		r.Get("/renders", s.handleRenders)
	})
	return r
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("write response")
	}
}

func (s *Server) respondErr(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, map[string]string{"error": msg})
}
