package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// helixStub fakes the token endpoint plus the two Helix resources.
type helixStub struct {
	mux        *http.ServeMux
	tokenCalls atomic.Int64
	users      map[string]Account // keyed by login
	videos     map[string][]Video // keyed by user id
}

func newHelixStub() *helixStub {
	s := &helixStub{
		mux:    http.NewServeMux(),
		users:  map[string]Account{},
		videos: map[string][]Video{},
	}
	s.mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		s.tokenCalls.Add(1)
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Query().Get("grant_type") != "client_credentials" {
			http.Error(w, "grant", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "token_type": "bearer"})
	})
	s.mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			http.Error(w, "auth", http.StatusUnauthorized)
			return
		}
		data := []Account{}
		if a, ok := s.users[r.URL.Query().Get("login")]; ok {
			data = append(data, a)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	s.mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			http.Error(w, "auth", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": s.videos[r.URL.Query().Get("user_id")]})
	})
	return s
}

func newStubClient(t *testing.T, stub *helixStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.mux)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthURL:      srv.URL,
		APIURL:       srv.URL,
	}, nil)
}

func TestIsConfigured(t *testing.T) {
	if NewClient(ClientConfig{}, nil).IsConfigured() {
		t.Error("empty credentials must not report configured")
	}
	if NewClient(ClientConfig{ClientID: "cid"}, nil).IsConfigured() {
		t.Error("missing secret must not report configured")
	}
	if !NewClient(ClientConfig{ClientID: "cid", ClientSecret: "s"}, nil).IsConfigured() {
		t.Error("full credentials must report configured")
	}
}

func TestAuthenticate(t *testing.T) {
	stub := newHelixStub()
	c := newStubClient(t, stub)

	token, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q", token)
	}
}

func TestPullArchive(t *testing.T) {
	stub := newHelixStub()
	stub.users["streamer"] = Account{ID: "u1", Login: "streamer", DisplayName: "Streamer"}
	stub.videos["u1"] = []Video{
		{ID: "v2", URL: "https://example.com/v2", Duration: "1h0m0s"},
		{ID: "v1", URL: "https://example.com/v1", Duration: "3h21m33s"},
	}
	c := newStubClient(t, stub)

	archive, err := c.PullArchive(context.Background(), "streamer")
	if err != nil {
		t.Fatal(err)
	}
	if archive.Account == nil || archive.Account.ID != "u1" {
		t.Errorf("account = %+v", archive.Account)
	}
	if len(archive.Videos) != 2 || archive.Videos[0].ID != "v2" {
		t.Errorf("videos = %+v, want platform order preserved", archive.Videos)
	}

	// Tokens are requested per archive pull, never reused.
	if _, err := c.PullArchive(context.Background(), "streamer"); err != nil {
		t.Fatal(err)
	}
	if got := stub.tokenCalls.Load(); got != 2 {
		t.Errorf("token endpoint hit %d times, want 2", got)
	}
}

func TestPullArchiveUnknownAccount(t *testing.T) {
	c := newStubClient(t, newHelixStub())

	archive, err := c.PullArchive(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if archive.Account != nil {
		t.Errorf("unknown account must have nil account, got %+v", archive.Account)
	}
	if archive.Videos == nil || len(archive.Videos) != 0 {
		t.Errorf("unknown account must yield empty video list, got %+v", archive.Videos)
	}
}

func TestAuthenticateRejectsEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token_type": "bearer"})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{ClientID: "cid", ClientSecret: "s", AuthURL: srv.URL, APIURL: srv.URL}, nil)
	if _, err := c.Authenticate(context.Background()); err == nil {
		t.Error("empty access token must fail")
	}
}
