package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/shouni/itihas-kahani/pkg/controller"
	"github.com/shouni/itihas-kahani/pkg/domain"
	"github.com/shouni/itihas-kahani/pkg/utils"
)

// maxRequestBodyBytes はフォームと JSON のリクエストボディの上限です。
const maxRequestBodyBytes = 64 << 10

type pageData struct {
	Lang      string
	State     controller.ViewState
	StoryHTML template.HTML
	ImageURL  template.URL
	Styles    []domain.Style
	Lengths   []domain.Length
	Languages []domain.Language
}

// StateResponse は /api/state の応答です。
type StateResponse struct {
	SessionID string               `json:"session_id"`
	State     controller.ViewState `json:"state"`
	StoryHTML string               `json:"story_html,omitempty"`
}

// StartRequest は /api/story/start のリクエストボディです。
type StartRequest struct {
	Prompt   string `json:"prompt"`
	Style    string `json:"style,omitempty"`
	Length   string `json:"length,omitempty"`
	Language string `json:"language,omitempty"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	state := session.State()

	data := pageData{
		Lang:      string(state.Options.Language),
		State:     state,
		Styles:    []domain.Style{domain.StyleEducational, domain.StyleAdventurous, domain.StyleMysterious, domain.StylePoetic},
		Lengths:   []domain.Length{domain.LengthShort, domain.LengthMedium, domain.LengthLong},
		Languages: []domain.Language{domain.LanguageHindi, domain.LanguageEnglish},
	}
	if state.Screen == controller.ScreenStory && !state.Loading {
		html, err := RenderStory(state.CurrentResult.StoryText)
		if err != nil {
			slog.ErrorContext(r.Context(), "物語の描画に失敗しました", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.StoryHTML = html
		// 生成した data URI 以外は入らない
		data.ImageURL = template.URL(state.CurrentResult.ImageURL)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		slog.ErrorContext(r.Context(), "テンプレートの実行に失敗しました", "error", err)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "フォームの解析に失敗しました", http.StatusBadRequest)
		return
	}
	req := StartRequest{
		Prompt:   r.PostForm.Get("prompt"),
		Style:    r.PostForm.Get("style"),
		Length:   r.PostForm.Get("length"),
		Language: r.PostForm.Get("language"),
	}

	if _, err := s.start(w, r, req); err != nil && !errors.Is(err, controller.ErrInvalidTransition) {
		slog.WarnContext(r.Context(), "物語を開始できませんでした", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if _, err := session.RefreshAsync(detach(r)); err != nil {
		slog.InfoContext(r.Context(), "refresh を受け付けませんでした", "session", session.ID(), "reason", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.session(w, r), http.StatusOK)
}

func (s *Server) handleAPIStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "リクエストボディが大きすぎます")
			return
		}
		writeError(w, http.StatusBadRequest, "JSONの解析に失敗しました")
		return
	}

	session, err := s.start(w, r, req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, r, session, http.StatusAccepted)
}

func (s *Server) handleAPIRefresh(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if _, err := session.RefreshAsync(detach(r)); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeState(w, r, session, http.StatusAccepted)
}

// start は entry 画面のセッションで生成を開始します。
// オプションが指定された場合は、そのオプションでセッションを作り直します。
func (s *Server) start(w http.ResponseWriter, r *http.Request, req StartRequest) (*controller.Session, error) {
	session := s.session(w, r)

	if req.Style != "" || req.Length != "" || req.Language != "" {
		if session.State().Screen != controller.ScreenEntry {
			return session, controller.ErrInvalidTransition
		}
		defaults := session.State().Options
		opts := controller.StoryOptions{
			Style:    domain.ParseStyle(utils.DefaultIfBlank(req.Style, string(defaults.Style))),
			Length:   domain.ParseLength(utils.DefaultIfBlank(req.Length, string(defaults.Length))),
			Language: domain.ParseLanguage(utils.DefaultIfBlank(req.Language, string(defaults.Language))),
		}
		replaced, err := s.store.Replace(session, opts)
		if err != nil {
			return session, err
		}
		session = replaced
		setSessionCookie(w, session.ID())
	}

	if _, err := session.StartAsync(detach(r), req.Prompt); err != nil {
		return session, err
	}
	return session, nil
}

// session は Cookie のセッションを返し、無ければ新しく作成します。
func (s *Server) session(w http.ResponseWriter, r *http.Request) *controller.Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if session, ok := s.store.Get(c.Value); ok {
			return session
		}
	}
	session := s.store.Create()
	setSessionCookie(w, session.ID())
	return session
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, session *controller.Session, status int) {
	state := session.State()
	resp := StateResponse{SessionID: session.ID(), State: state}
	if state.Screen == controller.ScreenStory && !state.Loading {
		if html, err := RenderStory(state.CurrentResult.StoryText); err == nil {
			resp.StoryHTML = string(html)
		}
	}
	writeJSON(w, status, resp)
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// detach はリクエスト終了後も生成を続けるためにキャンセルを切り離します。
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrBusy), errors.Is(err, controller.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSONの書き込みに失敗しました", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
