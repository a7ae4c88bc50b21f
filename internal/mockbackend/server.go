// Package mockbackend is an in-process stand-in for the toolbox backend.
// It serves the /api endpoints the client uses with scripted answers and
// records what it was asked, for end-to-end tests.
package mockbackend

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"xhstoolbox/pkg/xhs"
)

// GuestCookie is set by guest-init and required by QR creation
const GuestCookie = "xhs_guest"

type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type note struct {
	item   xhs.NoteItem
	images []string
	videos []xhs.VideoURL
}

// Server simulates the backend
type Server struct {
	server *httptest.Server

	mu        sync.Mutex
	qrScript  []interface{}
	qrPolls   map[string]int
	qrCount   int
	user      xhs.LoginInfo
	feeds     map[string][]xhs.NoteItem
	notes     map[string]note
	media     map[string][]byte
	failures  map[string]int
	requested []string

	requestCount int32
}

// New starts a backend. The QR script defaults to waiting, scanned,
// confirmed.
func New() *Server {
	m := &Server{
		qrScript: []interface{}{0, 1, 2},
		qrPolls:  make(map[string]int),
		user:     xhs.LoginInfo{UserID: "u-1", Nickname: "Tester"},
		feeds:    make(map[string][]xhs.NoteItem),
		notes:    make(map[string]note),
		media:    make(map[string][]byte),
		failures: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(m.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/guest-init", m.handleGuestInit)
		r.Post("/auth/qrcode/create", m.handleQRCreate)
		r.Get("/auth/qrcode/status", m.handleQRStatus)
		r.Get("/user/me", m.handleMe)
		r.Get("/feed/homefeed/{category}", m.handleFeed)
		r.Get("/note/detail", m.handleNoteDetail)
		r.Get("/note/images", m.handleNoteImages)
		r.Get("/note/video", m.handleNoteVideo)
		r.Get("/media/download", m.handleMedia)
	})

	m.server = httptest.NewServer(r)
	return m
}

// URL is the backend origin
func (m *Server) URL() string {
	return m.server.URL
}

// Close shuts the backend down
func (m *Server) Close() {
	m.server.Close()
}

// RequestCount returns the number of requests served
func (m *Server) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// Requested returns the request URIs in arrival order
func (m *Server) Requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requested...)
}

// SetQRScript sets the code_status values returned by successive polls of
// one QR code. The last value repeats.
func (m *Server) SetQRScript(codes ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.qrScript = codes
}

// SetUser sets the user reported on confirmation and by /api/user/me
func (m *Server) SetUser(u xhs.LoginInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = u
}

// SetFeed sets the notes of a feed category
func (m *Server) SetFeed(category string, notes []xhs.NoteItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[category] = notes
}

// AddImageNote registers an image note and the content of its images
func (m *Server) AddImageNote(item xhs.NoteItem, images map[string][]byte, order []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Type = xhs.NoteTypeNormal
	m.notes[item.NoteID] = note{item: item, images: order}
	for u, data := range images {
		m.media[u] = data
	}
}

// AddVideoNote registers a video note with one rendition
func (m *Server) AddVideoNote(item xhs.NoteItem, videoURL string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.Type = xhs.NoteTypeVideo
	m.notes[item.NoteID] = note{item: item, videos: []xhs.VideoURL{{Quality: "720p", URL: videoURL}}}
	m.media[videoURL] = data
}

// FailNext makes the next count requests to path answer with status
func (m *Server) FailNext(path string, status, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path+"#"+strconv.Itoa(status)] = count
}

func (m *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.requestCount, 1)

		m.mu.Lock()
		m.requested = append(m.requested, r.URL.RequestURI())
		status := 0
		for key, left := range m.failures {
			path, code, _ := strings.Cut(key, "#")
			if path == r.URL.Path && left > 0 {
				m.failures[key] = left - 1
				status, _ = strconv.Atoi(code)
				break
			}
		}
		m.mu.Unlock()

		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ok(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, envelope{Code: 0, Message: "success", Data: data})
}

func (m *Server) handleGuestInit(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: GuestCookie, Value: "guest", Path: "/"})
	render.JSON(w, r, xhs.GuestInit{Success: true, Message: "guest ready"})
}

func (m *Server) handleQRCreate(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(GuestCookie); err != nil {
		render.JSON(w, r, xhs.QRCode{Success: false, Error: "guest session required"})
		return
	}

	m.mu.Lock()
	m.qrCount++
	id := fmt.Sprintf("qr-%d", m.qrCount)
	m.mu.Unlock()

	render.JSON(w, r, xhs.QRCode{
		Success: true,
		QRID:    id,
		QRURL:   "https://www.xiaohongshu.com/qr/" + id,
		Code:    "c-" + id,
	})
}

func (m *Server) handleQRStatus(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("qr_id")

	m.mu.Lock()
	n := m.qrPolls[id]
	m.qrPolls[id] = n + 1
	code := m.qrScript[len(m.qrScript)-1]
	if n < len(m.qrScript) {
		code = m.qrScript[n]
	}
	user := m.user
	m.mu.Unlock()

	resp := map[string]interface{}{"success": true, "code_status": code}
	if code == 2 || code == "2" || code == "confirmed" {
		resp["login_info"] = user
	}
	render.JSON(w, r, resp)
}

func (m *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	u := m.user
	m.mu.Unlock()
	ok(w, r, xhs.UserInfo{UserID: u.UserID, Nickname: u.Nickname, Avatar: u.Avatar})
}

func (m *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	num, err := strconv.Atoi(r.URL.Query().Get("num"))
	if err != nil || num <= 0 {
		num = xhs.DefaultPageSize
	}
	start := 0
	if c := r.URL.Query().Get("cursor"); c != "" {
		if start, err = strconv.Atoi(c); err != nil {
			render.JSON(w, r, envelope{Code: 400, Message: "bad cursor"})
			return
		}
	}

	m.mu.Lock()
	all := m.feeds[category]
	m.mu.Unlock()

	if start > len(all) {
		start = len(all)
	}
	end := start + num
	if end > len(all) {
		end = len(all)
	}
	page := xhs.FeedPage{Items: all[start:end], HasMore: end < len(all)}
	if page.HasMore {
		page.Cursor = strconv.Itoa(end)
	}
	ok(w, r, page)
}

func (m *Server) lookup(w http.ResponseWriter, r *http.Request) (note, bool) {
	m.mu.Lock()
	n, found := m.notes[r.URL.Query().Get("note_id")]
	m.mu.Unlock()
	if !found {
		render.JSON(w, r, envelope{Code: 404, Message: "note not found"})
	}
	return n, found
}

func (m *Server) handleNoteDetail(w http.ResponseWriter, r *http.Request) {
	if n, found := m.lookup(w, r); found {
		ok(w, r, n.item)
	}
}

func (m *Server) handleNoteImages(w http.ResponseWriter, r *http.Request) {
	if n, found := m.lookup(w, r); found {
		ok(w, r, map[string]interface{}{"urls": n.images})
	}
}

func (m *Server) handleNoteVideo(w http.ResponseWriter, r *http.Request) {
	if n, found := m.lookup(w, r); found {
		ok(w, r, map[string]interface{}{"urls": n.videos})
	}
}

func (m *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	data, found := m.media[r.URL.Query().Get("url")]
	m.mu.Unlock()
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}
