package server

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"script2video/scenes"
	"script2video/store"
	"script2video/types"
	"script2video/visuals"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{
		"service":      "script2video",
		"status":       "ok",
		"capabilities": s.caps,
	})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script string `json:"script"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		s.respondErr(w, http.StatusBadRequest, "script required")
		return
	}
	parts := scenes.Split(req.Script)
	out := make([]types.Scene, 0, len(parts))
	for i, text := range parts {
		out = append(out, types.Scene{
			ID:       fmt.Sprintf("scene_%d", i+1),
			Text:     text,
			Duration: 5.0,
		})
	}
	s.respond(w, http.StatusOK, map[string]any{"scenes": out})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"voices": s.voices.List(r.Context())})
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic    string `json:"topic"`
		Style    string `json:"style"`
		Duration int    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	script, err := s.scripts.Generate(r.Context(), req.Topic, req.Style, req.Duration)
	if err != nil {
		s.respondErr(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"script": script})
}

func (s *Server) handleGenerateSingleImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt  string `json:"prompt"`
		SceneID string `json:"scene_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.respondErr(w, http.StatusBadRequest, "prompt required")
		return
	}
	path, err := s.generateImage(r, req.Prompt, req.SceneID)
	if err != nil {
		s.respondErr(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"path":         path,
		"download_url": "/api/download_image?path=" + path,
	})
}

func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scenes []types.Scene `json:"scenes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Scenes) == 0 {
		s.respondErr(w, http.StatusBadRequest, "scenes required")
		return
	}

	paths := map[string]string{}
	errs := map[string]string{}
	for _, sc := range req.Scenes {
		prompt := sc.ImagePrompt
		if prompt == "" {
			prompt = sc.Text
		}
		path, err := s.generateImage(r, prompt, sc.ID)
		if err != nil {
			errs[sc.ID] = err.Error()
			continue
		}
		paths[sc.ID] = path
	}
	s.respond(w, http.StatusOK, map[string]any{"images": paths, "errors": errs})
}

func (s *Server) generateImage(r *http.Request, prompt, sceneID string) (string, error) {
	if !s.caps.ImageGen {
		return "", fmt.Errorf("image generation not configured")
	}
	if sceneID == "" {
		sceneID = "scene"
	}
	out := filepath.Join(s.cfg.Paths.GeneratedImages,
		fmt.Sprintf("%s_%s.png", sceneID, uuid.NewString()[:8]))
	err := s.images.Generate(r.Context(), prompt, s.cfg.Video.Width, s.cfg.Video.Height, out)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *Server) handleStockSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	results, err := s.stock.Search(r.Context(), query, perPage)
	if err != nil {
		s.respondErr(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleDownloadStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	path, err := s.stock.Download(r.Context(), req.URL, s.cfg.Paths.Uploads)
	if err != nil {
		s.respondErr(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"path": path})
}

var musicExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".ogg": true}

var imageUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".webp": true,
}

func (s *Server) handleMusicUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondErr(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !musicExts[ext] {
		s.respondErr(w, http.StatusBadRequest, "unsupported audio format")
		return
	}

	dest := filepath.Join(s.cfg.Paths.MusicCache,
		fmt.Sprintf("music_%s%s", uuid.NewString()[:8], ext))
	out, err := os.Create(dest)
	if err != nil {
		s.respondErr(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dest)
		s.respondErr(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"path": dest})
}

// handleUploadBackground stores a per-scene background. Images are flattened
// over white and re-saved as PNG so no alpha reaches the pipeline; videos and
// undecodable files are kept as uploaded.
func (s *Server) handleUploadBackground(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondErr(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	sceneID := r.FormValue("scene_id")
	if sceneID == "" {
		sceneID = "scene"
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".dat"
	}

	var dest string
	if imageUploadExts[ext] {
		if img, err := visuals.DecodeFlatten(file, color.White); err == nil {
			dest = filepath.Join(s.cfg.Paths.Uploads, fmt.Sprintf("%s_uploaded.png", sceneID))
			if err := visuals.SavePNG(img, dest); err != nil {
				s.respondErr(w, http.StatusInternalServerError, "could not store upload")
				return
			}
			s.respond(w, http.StatusOK, map[string]string{
				"scene_id": sceneID, "background_path": dest,
			})
			return
		}
		s.log.Warn().Str("file", header.Filename).Msg("image decode failed, storing as sent")
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			s.respondErr(w, http.StatusInternalServerError, "could not store upload")
			return
		}
	}

	dest = filepath.Join(s.cfg.Paths.Uploads, sceneID+ext)
	out, err := os.Create(dest)
	if err != nil {
		s.respondErr(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dest)
		s.respondErr(w, http.StatusInternalServerError, "could not store upload")
		return
	}
	s.respond(w, http.StatusOK, map[string]string{
		"scene_id": sceneID, "background_path": dest,
	})
}

// handleDownloadImage serves generated or uploaded images by full path.
// Anything outside those two directories is refused.
func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondErr(w, http.StatusBadRequest, "path parameter required")
		return
	}
	full, err := filepath.Abs(path)
	if err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid file path")
		return
	}

	allowed := false
	for _, dir := range []string{s.cfg.Paths.Uploads, s.cfg.Paths.GeneratedImages} {
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if strings.HasPrefix(full, abs+string(os.PathSeparator)) {
			allowed = true
			break
		}
	}
	if !allowed {
		s.respondErr(w, http.StatusBadRequest, "invalid file path")
		return
	}
	if _, err := os.Stat(full); err != nil {
		s.respondErr(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(full))
	http.ServeFile(w, r, full)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req types.RenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.renderer.Render(r.Context(), req)
	if s.history != nil {
		status := "done"
		if err != nil {
			status = "failed"
		}
		if recErr := s.history.Record(req.ProjectName, len(req.Scenes), out, status, err); recErr != nil {
			s.log.Warn().Err(recErr).Msg("could not record render history")
		}
	}
	if err != nil {
		s.respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := filepath.Base(out)
	s.respond(w, http.StatusOK, map[string]string{
		"output":       name,
		"download_url": "/api/download?file=" + name,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	if name == "" {
		s.respondErr(w, http.StatusBadRequest, "file parameter required")
		return
	}

	outputs, err := filepath.Abs(s.cfg.Paths.Outputs)
	if err != nil {
		s.respondErr(w, http.StatusInternalServerError, "outputs directory unavailable")
		return
	}
	full, err := filepath.Abs(filepath.Join(outputs, name))
	if err != nil || !strings.HasPrefix(full, outputs+string(os.PathSeparator)) {
		s.respondErr(w, http.StatusBadRequest, "invalid file path")
		return
	}
	if _, err := os.Stat(full); err != nil {
		s.respondErr(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(full))
	http.ServeFile(w, r, full)
}

func (s *Server) handleRenders(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respond(w, http.StatusOK, map[string]any{"renders": []store.Render{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	renders, err := s.history.Recent(limit)
	if err != nil {
		s.respondErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"renders": renders})
}
