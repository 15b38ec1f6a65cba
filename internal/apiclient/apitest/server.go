// Package apitest runs an in-memory stand-in for the remote REST API.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nestfeed/client/internal/model/chat"
	"github.com/nestfeed/client/internal/model/social"
)

// Server is a fake API seeded with one account. Exported fields may be edited
// between requests while holding Lock.
type Server struct {
	srv *httptest.Server

	mu            sync.Mutex
	Token         string
	Password      string
	OTP           string
	Me            social.User
	Feed          []social.Post
	Deleted       []social.Post
	Mine          []social.Post
	Notifications []social.Notification
	Requests      []social.FriendRequest
	Friends       []social.User
	Users         []social.User
	Conversations map[string][]chat.WireMessage
	calls         []string
	nextID        int
}

// New starts a server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Token:         "tok-alice",
		Password:      "secret",
		OTP:           "123456",
		Me:            social.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com", ProfilePic: "https://cdn.example/alice.png"},
		Conversations: make(map[string][]chat.WireMessage),
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Lock guards the exported fields.
func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

// Calls counts requests matching "METHOD /path".
func (s *Server) Calls(call string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(api chi.Router) {
		api.Post("/user/login", s.handleLogin)
		api.Post("/user/register", s.handleRegister)
		api.Post("/otp/otp", s.handleSendOTP)
		api.Post("/otp/verify-otp", s.handleVerifyOTP)
		api.Get("/user/search/{query}", s.handleSearch)

		api.Group(func(auth chi.Router) {
			auth.Use(s.requireToken)

			auth.Get("/user/me", s.handleMe)
			auth.Put("/user/update", s.handleUpdate)
			auth.Post("/user/change-password", s.handleChangePassword)
			auth.Post("/user/uploadProfilePic", s.handleUploadPic)
			auth.Get("/user/friendprofile/{userID}", s.handleFriendProfile)
			auth.Get("/user/feed", s.handleFeed)

			auth.Post("/post/create", s.handleCreatePost)
			auth.Post("/post/like/{postID}", s.handleLike)
			auth.Delete("/post/delete/{postID}", s.handleDeletePost)
			auth.Put("/post/restore/{postID}", s.handleRestorePost)
			auth.Get("/post/deletedposts", s.handleDeletedPosts)
			auth.Get("/post/myposts", s.handleMyPosts)

			auth.Post("/friendrequest/send", s.handleSendRequest)
			auth.Get("/friendrequest/getfriendrequests", s.handleRequests)
			auth.Post("/friendrequest/stauschange", s.handleStatusChange)
			auth.Get("/friendrequest/getAllFriends", s.handleFriends)
			auth.Get("/friendrequest/getFriends", s.handleFriends)

			auth.Get("/notification/getNotifications", s.handleNotifications)
			auth.Get("/notification/unreadCount", s.handleUnreadCount)
			auth.Put("/notification/mark/{id}", s.handleMark)
			auth.Put("/notification/markAll", s.handleMarkAll)

			auth.Get("/chat/conversations/{userID}", s.handleConversation)
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.Token
		s.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decode(r *http.Request) map[string]string {
	out := map[string]string{}
	json.NewDecoder(r.Body).Decode(&out)
	return out
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if body["email"] != s.Me.Email || body["password"] != s.Password {
		message(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":      s.Token,
		"message":    s.Me.Name + " logged in successfully",
		"profilePic": s.Me.ProfilePic,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	if body["email"] == "" {
		message(w, http.StatusBadRequest, "Email is required")
		return
	}
	message(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	if body["email"] == "" {
		message(w, http.StatusBadRequest, "Email is required")
		return
	}
	message(w, http.StatusOK, "OTP sent to email")
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if body["otp"] != s.OTP {
		message(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	s.Password = body["newPassword"]
	message(w, http.StatusOK, "Password reset successfully")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(chi.URLParam(r, "query"))
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []social.User{}
	for _, u := range s.Users {
		if strings.Contains(strings.ToLower(u.Name), query) {
			users = append(users, u)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": s.Me})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if body["password"] != s.Password {
		message(w, http.StatusUnauthorized, "Incorrect password")
		return
	}
	if body["name"] != "" {
		s.Me.Name = body["name"]
	}
	if body["email"] != "" {
		s.Me.Email = body["email"]
	}
	message(w, http.StatusOK, "Profile updated")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if body["oldPassword"] != s.Password {
		message(w, http.StatusBadRequest, "Old password is incorrect")
		return
	}
	s.Password = body["newPassword"]
	message(w, http.StatusOK, "Password changed")
}

func (s *Server) handleUploadPic(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("profilePic")
	if err != nil {
		message(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	io.Copy(io.Discard, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Me.ProfilePic = "https://cdn.example/" + header.Filename
	writeJSON(w, http.StatusOK, map[string]any{"user": s.Me})
}

func (s *Server) handleFriendProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range append(append([]social.User(nil), s.Users...), s.Friends...) {
		if u.ID != id {
			continue
		}
		isFriend := false
		for _, f := range s.Friends {
			isFriend = isFriend || f.ID == id
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":       u,
			"is_friend":  isFriend,
			"is_pending": false,
			"posts":      []social.Post{},
		})
		return
	}
	message(w, http.StatusNotFound, "User not found")
}

func paging(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit
}

func slicePage(posts []social.Post, page, limit int) map[string]any {
	start := (page - 1) * limit
	if start > len(posts) {
		start = len(posts)
	}
	end := start + limit
	if end > len(posts) {
		end = len(posts)
	}
	return map[string]any{
		"posts": append([]social.Post{}, posts[start:end]...),
		"pagination": social.Pagination{
			Page:    page,
			Limit:   limit,
			Total:   len(posts),
			HasMore: end < len(posts),
		},
	}
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, slicePage(s.Feed, page, limit))
}

func (s *Server) handleDeletedPosts(w http.ResponseWriter, r *http.Request) {
	page, limit := paging(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, slicePage(s.Deleted, page, limit))
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"posts": append([]social.Post{}, s.Mine...)})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		message(w, http.StatusBadRequest, "Invalid form")
		return
	}
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		message(w, http.StatusBadRequest, "Post text is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	post := social.Post{
		ID:        s.newID("post"),
		Text:      text,
		User:      social.User{ID: s.Me.ID},
		CreatedAt: time.Now().UTC(),
	}
	if _, header, err := r.FormFile("image"); err == nil {
		post.Image = "https://cdn.example/" + header.Filename
	}
	s.Feed = append([]social.Post{post}, s.Feed...)
	s.Mine = append([]social.Post{post}, s.Mine...)
	writeJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postID")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Feed {
		if s.Feed[i].ID == id {
			s.Feed[i].Likes = append(s.Feed[i].Likes, s.Me.ID)
			message(w, http.StatusOK, "Post liked")
			return
		}
	}
	message(w, http.StatusNotFound, "Post not found")
}

func movePost(from, to []social.Post, id string) ([]social.Post, []social.Post, bool) {
	for i, p := range from {
		if p.ID == id {
			return append(from[:i:i], from[i+1:]...), append([]social.Post{p}, to...), true
		}
	}
	return from, to, false
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postID")
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.Feed, s.Deleted, ok = movePost(s.Feed, s.Deleted, id); !ok {
		message(w, http.StatusNotFound, "Post not found")
		return
	}
	message(w, http.StatusOK, "Post deleted")
}

func (s *Server) handleRestorePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "postID")
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	if s.Deleted, s.Feed, ok = movePost(s.Deleted, s.Feed, id); !ok {
		message(w, http.StatusNotFound, "Post not found")
		return
	}
	message(w, http.StatusOK, "Post restored")
}

func (s *Server) handleSendRequest(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	if body["receiver"] == "" {
		message(w, http.StatusBadRequest, "Receiver is required")
		return
	}
	message(w, http.StatusCreated, "Friend request sent")
}

func (s *Server) handleRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"friendRequests": append([]social.FriendRequest{}, s.Requests...)})
}

func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request) {
	body := decode(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Requests {
		if s.Requests[i].ID != body["requestId"] {
			continue
		}
		s.Requests[i].Status = body["status"]
		if body["status"] == social.RequestAccepted {
			s.Friends = append(s.Friends, s.Requests[i].From)
		}
		message(w, http.StatusOK, "Request updated")
		return
	}
	message(w, http.StatusNotFound, "Request not found")
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"friends": append([]social.User{}, s.Friends...)})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"notifications": append([]social.Notification{}, s.Notifications...)})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.Notifications {
		if !n.Checked {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			s.Notifications[i].Checked = true
			message(w, http.StatusOK, "Marked")
			return
		}
	}
	message(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleMarkAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Notifications {
		s.Notifications[i].Checked = true
	}
	message(w, http.StatusOK, "All marked")
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"conversations": append([]chat.WireMessage{}, s.Conversations[id]...)})
}
