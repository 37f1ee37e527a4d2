package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gamut-telemetry/internal/dto"
	"gamut-telemetry/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path        string
	contentType string
	payload     dto.TrackPayload
	link        dto.LinkSessionRequest
}

type backendStub struct {
	mu       sync.Mutex
	requests []recordedRequest

	status   int
	response string
}

func newBackendStub() *backendStub {
	return &backendStub{status: http.StatusOK, response: "{}"}
}

func (b *backendStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{path: r.URL.Path, contentType: r.Header.Get("Content-Type")}
		switch r.URL.Path {
		case "/analytics/track":
			json.NewDecoder(r.Body).Decode(&rec.payload)
		case "/analytics/link-session":
			json.NewDecoder(r.Body).Decode(&rec.link)
		}

		b.mu.Lock()
		b.requests = append(b.requests, rec)
		status, response := b.status, b.response
		b.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(response))
	}
}

func (b *backendStub) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

func samplePayload() dto.TrackPayload {
	return dto.TrackPayload{
		SessionID: "sess-1",
		Metrics:   dto.Metrics{Total: 30, Article: 30},
		Interactions: []dto.InteractionEvent{{
			ContentType: dto.InteractionArticle,
			ContentID:   "a1",
			Duration:    30,
			Quarters:    []int{30, 0, 0, 0},
		}},
		Meta: dto.Meta{Platform: "web", UserAgent: "GamutShell/2.1"},
	}
}

func TestTrack(t *testing.T) {
	t.Run("posts the payload and decodes the command", func(t *testing.T) {
		stub := newBackendStub()
		stub.response = `{"command":"take_a_break"}`
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		resp, err := c.Track(context.Background(), samplePayload())
		require.NoError(t, err)
		assert.Equal(t, "take_a_break", resp.Command)

		reqs := stub.recorded()
		require.Len(t, reqs, 1)
		assert.Equal(t, "/analytics/track", reqs[0].path)
		assert.Equal(t, "application/json", reqs[0].contentType)
		assert.Equal(t, "sess-1", reqs[0].payload.SessionID)
		assert.Equal(t, 30, reqs[0].payload.Metrics.Total)
		require.Len(t, reqs[0].payload.Interactions, 1)
		assert.Equal(t, []int{30, 0, 0, 0}, reqs[0].payload.Interactions[0].Quarters)
	})

	t.Run("empty body means no command", func(t *testing.T) {
		stub := newBackendStub()
		stub.response = ""
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		resp, err := c.Track(context.Background(), samplePayload())
		require.NoError(t, err)
		assert.Empty(t, resp.Command)
	})

	t.Run("an undecodable body is not an error", func(t *testing.T) {
		stub := newBackendStub()
		stub.response = "<html>gateway error page</html>"
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		resp, err := c.Track(context.Background(), samplePayload())
		require.NoError(t, err)
		assert.Empty(t, resp.Command)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		stub := newBackendStub()
		stub.status = http.StatusServiceUnavailable
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		_, err := c.Track(context.Background(), samplePayload())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("unreachable backend is an error", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:1", logger.Nop())
		_, err := c.Track(context.Background(), samplePayload())
		require.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(2 * time.Second)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		c := NewClient(srv.URL, logger.Nop())
		_, err := c.Track(ctx, samplePayload())
		require.Error(t, err)
	})
}

func TestTrackBeacon(t *testing.T) {
	stub := newBackendStub()
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(srv.URL, logger.Nop())
	c.TrackBeacon(samplePayload())

	reqs := stub.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/analytics/track", reqs[0].path)
	assert.Equal(t, "sess-1", reqs[0].payload.SessionID)
}

func TestLinkSession(t *testing.T) {
	t.Run("posts the association", func(t *testing.T) {
		stub := newBackendStub()
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		err := c.LinkSession(context.Background(), dto.LinkSessionRequest{
			SessionID: "sess-1",
			UserID:    "user-42",
		})
		require.NoError(t, err)

		reqs := stub.recorded()
		require.Len(t, reqs, 1)
		assert.Equal(t, "/analytics/link-session", reqs[0].path)
		assert.Equal(t, "sess-1", reqs[0].link.SessionID)
		assert.Equal(t, "user-42", reqs[0].link.UserID)
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		stub := newBackendStub()
		stub.status = http.StatusBadRequest
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		c := NewClient(srv.URL, logger.Nop())
		err := c.LinkSession(context.Background(), dto.LinkSessionRequest{
			SessionID: "sess-1",
			UserID:    "user-42",
		})
		require.Error(t, err)
	})
}
