package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:4600/api"

// Simplified event shape for the script
type simEvent struct {
	Type           string  `json:"type"`
	Timestamp      int64   `json:"timestamp"`
	ScrollTop      float64 `json:"scrollTop,omitempty"`
	ViewportHeight float64 `json:"viewportHeight,omitempty"`
	DocHeight      float64 `json:"docHeight,omitempty"`
	ContentID      string  `json:"contentId,omitempty"`
	ContentType    string  `json:"contentType,omitempty"`
	WordCount      int     `json:"wordCount,omitempty"`
	Path           string  `json:"path,omitempty"`
	Visible        *bool   `json:"visible,omitempty"`
	FragmentID     string  `json:"fragmentId,omitempty"`
	Entered        *bool   `json:"entered,omitempty"`
}

func main() {
	fmt.Println("=== Engagement Trace Simulation ===")
	fmt.Println("Replaying a slow-read session against the local agent")

	now := func() int64 { return time.Now().UnixMilli() }
	truth := true
	falsth := false

	// Open an article
	send(simEvent{
		Type: "content_change", Timestamp: now(),
		ContentID: "article-sim-001", ContentType: "article",
		WordCount: 1800, Path: "/article/article-sim-001",
	})
	send(simEvent{Type: "fragment", Timestamp: now(), FragmentID: "zone-1", Entered: &truth})

	// Read slowly near the top for a while
	pos := 0.0
	for i := 0; i < 20; i++ {
		pos += 12
		send(simEvent{
			Type: "scroll", Timestamp: now(),
			ScrollTop: pos, ViewportHeight: 900, DocHeight: 6000,
		})
		send(simEvent{Type: "cursor_move", Timestamp: now()})
		time.Sleep(1 * time.Second)
	}

	// Leave the top zone, then hide the tab (forces a flush)
	send(simEvent{Type: "fragment", Timestamp: now(), FragmentID: "zone-1", Entered: &falsth})
	send(simEvent{Type: "visibility", Timestamp: now(), Visible: &falsth})

	fmt.Println("Trace complete. Check the agent's dispatch log.")
}

func send(ev simEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(baseURL+"/events/", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to post event (is the agent running?): %v", err)
	}
	resp.Body.Close()
}
