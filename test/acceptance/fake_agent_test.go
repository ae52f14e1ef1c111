package acceptance_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// fakeAgent is a minimal stand-in for the OpenCode-compatible agent server
// internal/agentclient talks to. Each call to newFakeAgent is independent;
// onMessage decides what attempt N's send_task call returns.
type fakeAgent struct {
	mu       sync.Mutex
	sessions int
	attempt  int
	onMessage func(attempt int, directory string) (status int, body string)
}

func newFakeAgent(onMessage func(attempt int, directory string) (status int, body string)) *httptest.Server {
	a := &fakeAgent{onMessage: onMessage}
	mux := http.NewServeMux()

	mux.HandleFunc("/config/providers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"providers":[]}`)
	})

	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		a.mu.Lock()
		a.sessions++
		id := fmt.Sprintf("sess-%d", a.sessions)
		a.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	})

	// /session/{id}, /session/{id}/message, /session/{id}/file-status,
	// /session/{id}/diff all share a prefix; dispatch on suffix.
	mux.HandleFunc("/session/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		directory := r.URL.Query().Get("directory")

		switch {
		case r.Method == http.MethodPost && hasSuffix(path, "/message"):
			a.mu.Lock()
			a.attempt++
			attempt := a.attempt
			a.mu.Unlock()
			status, body := a.onMessage(attempt, directory)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		case r.Method == http.MethodGet && hasSuffix(path, "/message"):
			// Polling path: this fake never queues assistant messages
			// asynchronously, so an empty list is always returned and the
			// caller relies on the synchronous send_task response above.
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[]`)
		case r.Method == http.MethodGet && hasSuffix(path, "/file-status"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[]`)
		case r.Method == http.MethodGet && hasSuffix(path, "/diff"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"diff":""}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	return httptest.NewServer(mux)
}

func hasSuffix(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

// assistantMessageBody builds the synchronous send_task response body for
// an assistant reply carrying no tool calls — the orchestrator only cares
// that a message with role "assistant" came back; the resulting patch is
// derived from the working tree, not from the message body.
func assistantMessageBody(text string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"role": "assistant",
		"info": map[string]interface{}{"role": "assistant"},
		"parts": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	})
	return string(data)
}
