package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/itihas-kahani/pkg/controller"
	"github.com/shouni/itihas-kahani/pkg/domain"
)

// --- Mocks ---

type mockGenerator struct {
	mu       sync.Mutex
	requests []domain.StoryRequest
	release  chan struct{}
	err      error
}

func (m *mockGenerator) GenerateStory(ctx context.Context, req domain.StoryRequest) (*domain.StoryResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	release, err := m.release, m.err
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &domain.StoryResult{
		StoryText: "# " + req.Prompt + "\n\n**Itihas** ki kahani",
		ImageURL:  "data:image/png;base64,cG5n",
	}, nil
}

func (m *mockGenerator) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockGenerator) lastRequest() domain.StoryRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

var testOptions = controller.StoryOptions{
	Style:    domain.StyleEducational,
	Length:   domain.LengthMedium,
	Language: domain.LanguageHindi,
}

func newTestServer(t *testing.T, gen *mockGenerator) *Server {
	t.Helper()
	srv, err := New(controller.NewStore(gen, testOptions, time.Hour))
	require.NoError(t, err)
	return srv
}

// do はリクエストを実行し、Set-Cookie があれば cookie を更新するのだ。
func do(t *testing.T, srv *Server, cookie *http.Cookie, method, path string, body []byte, contentType string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	return rec, cookie
}

func getState(t *testing.T, srv *Server, cookie *http.Cookie) StateResponse {
	t.Helper()
	rec, _ := do(t, srv, cookie, http.MethodGet, "/api/state", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_EntryPage(t *testing.T) {
	srv := newTestServer(t, &mockGenerator{})

	rec, cookie := do(t, srv, nil, http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kahani Shuru Karein")
	require.NotNil(t, cookie, "セッション Cookie が発行されるべきなのだ")
}

func TestServer_APIFlow(t *testing.T) {
	gen := &mockGenerator{release: make(chan struct{})}
	srv := newTestServer(t, gen)
	_, cookie := do(t, srv, nil, http.MethodGet, "/", nil, "")

	t.Run("entry での refresh は 409 なのだ", func(t *testing.T) {
		rec, _ := do(t, srv, cookie, http.MethodPost, "/api/story/refresh", nil, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	body, _ := json.Marshal(StartRequest{Prompt: "Ashoka ka itihas"})
	rec, cookie := do(t, srv, cookie, http.MethodPost, "/api/story/start", body, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)

	loading := getState(t, srv, cookie)
	assert.Equal(t, controller.ScreenStory, loading.State.Screen)
	assert.True(t, loading.State.Loading)
	assert.Empty(t, loading.StoryHTML)

	t.Run("loading 中の refresh は 409 なのだ", func(t *testing.T) {
		rec, _ := do(t, srv, cookie, http.MethodPost, "/api/story/refresh", nil, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	close(gen.release)
	require.Eventually(t, func() bool {
		return !getState(t, srv, cookie).State.Loading
	}, time.Second, 5*time.Millisecond)

	done := getState(t, srv, cookie)
	assert.Contains(t, done.StoryHTML, "<h1>Ashoka ka itihas</h1>")
	assert.Equal(t, "data:image/png;base64,cG5n", done.State.CurrentResult.ImageURL)

	t.Run("2回目の start は 409 なのだ", func(t *testing.T) {
		rec, _ := do(t, srv, cookie, http.MethodPost, "/api/story/start", body, "application/json")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("完了後の refresh は受け付けられるのだ", func(t *testing.T) {
		rec, _ := do(t, srv, cookie, http.MethodPost, "/api/story/refresh", nil, "")
		assert.Equal(t, http.StatusAccepted, rec.Code)
		require.Eventually(t, func() bool {
			return !getState(t, srv, cookie).State.Loading
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, "Ashoka ka itihas", gen.lastRequest().Prompt)
	})

	t.Run("不正な JSON は 400 なのだ", func(t *testing.T) {
		rec, _ := do(t, srv, cookie, http.MethodPost, "/api/story/start", []byte("{"), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("大きすぎるボディは 413 なのだ", func(t *testing.T) {
		huge, _ := json.Marshal(StartRequest{Prompt: strings.Repeat("a", maxRequestBodyBytes+1)})
		rec, _ := do(t, srv, nil, http.MethodPost, "/api/story/start", huge, "application/json")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestServer_ConcurrentStartWithOptions(t *testing.T) {
	gen := &mockGenerator{release: make(chan struct{})}
	srv := newTestServer(t, gen)
	_, cookie := do(t, srv, nil, http.MethodGet, "/", nil, "")

	body, _ := json.Marshal(StartRequest{Prompt: "Hampi", Style: "poetic"})

	const n = 8
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/story/start", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.AddCookie(cookie)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	accepted := 0
	for code := range codes {
		if code == http.StatusAccepted {
			accepted++
		} else {
			assert.Equal(t, http.StatusConflict, code)
		}
	}
	assert.Equal(t, 1, accepted, "同じセッションから開始できるのは1回だけなのだ")

	close(gen.release)
	assert.Eventually(t, func() bool { return gen.requestCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, gen.requestCount(), "外部呼び出しも1回だけなのだ")
	assert.Equal(t, domain.StylePoetic, gen.lastRequest().Style)
}

func TestServer_FormFlow(t *testing.T) {
	gen := &mockGenerator{}
	srv := newTestServer(t, gen)
	_, cookie := do(t, srv, nil, http.MethodGet, "/", nil, "")

	form := url.Values{
		"prompt":   {"Vijayanagara"},
		"style":    {"mysterious"},
		"length":   {"short"},
		"language": {"en"},
	}
	rec, cookie := do(t, srv, cookie, http.MethodPost, "/story/start", []byte(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	require.Eventually(t, func() bool {
		return !getState(t, srv, cookie).State.Loading
	}, time.Second, 5*time.Millisecond)

	req := gen.lastRequest()
	assert.Equal(t, domain.StyleMysterious, req.Style)
	assert.Equal(t, domain.LengthShort, req.Length)
	assert.Equal(t, domain.LanguageEnglish, req.Language)

	page, _ := do(t, srv, cookie, http.MethodGet, "/", nil, "")
	html := page.Body.String()
	assert.Contains(t, html, "<h1>Vijayanagara</h1>")
	assert.Contains(t, html, `src="data:image/png;base64,cG5n"`)
	assert.Contains(t, html, "Nayi Kahani")
	assert.False(t, strings.Contains(html, "Kahani Shuru Karein"))

	rec, _ = do(t, srv, cookie, http.MethodPost, "/story/refresh", nil, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestServer_StartFailureShowsApology(t *testing.T) {
	gen := &mockGenerator{err: errors.New("auth failed")}
	srv := newTestServer(t, gen)
	_, cookie := do(t, srv, nil, http.MethodGet, "/", nil, "")

	body, _ := json.Marshal(StartRequest{Prompt: "Harappa"})
	rec, cookie := do(t, srv, cookie, http.MethodPost, "/api/story/start", body, "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return !getState(t, srv, cookie).State.Loading
	}, time.Second, 5*time.Millisecond)

	state := getState(t, srv, cookie)
	assert.Equal(t, controller.ApologyStory, state.State.CurrentResult.StoryText)
	assert.Empty(t, state.State.CurrentResult.ImageURL)
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, &mockGenerator{})
	rec, _ := do(t, srv, nil, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
