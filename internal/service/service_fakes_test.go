package service

import (
	"context"
	"sync"

	"gamut-telemetry/internal/dto"
)

// fakeClient records every call; trackErr makes Track fail on demand.
type fakeClient struct {
	mu       sync.Mutex
	tracked  []dto.TrackPayload
	beacons  []dto.TrackPayload
	linked   []dto.LinkSessionRequest
	trackErr error
	command  string
}

func (f *fakeClient) Track(_ context.Context, payload dto.TrackPayload) (*dto.TrackResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return nil, f.trackErr
	}
	f.tracked = append(f.tracked, payload)
	return &dto.TrackResponse{Command: f.command}, nil
}

func (f *fakeClient) TrackBeacon(payload dto.TrackPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beacons = append(f.beacons, payload)
}

func (f *fakeClient) LinkSession(_ context.Context, req dto.LinkSessionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linked = append(f.linked, req)
	return nil
}

func (f *fakeClient) trackedPayloads() []dto.TrackPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.TrackPayload, len(f.tracked))
	copy(out, f.tracked)
	return out
}

func (f *fakeClient) beaconPayloads() []dto.TrackPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.TrackPayload, len(f.beacons))
	copy(out, f.beacons)
	return out
}

func (f *fakeClient) linkedRequests() []dto.LinkSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dto.LinkSessionRequest, len(f.linked))
	copy(out, f.linked)
	return out
}

func (f *fakeClient) setTrackErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trackErr = err
}

// fakeQueue is an in-memory offline queue.
type fakeQueue struct {
	mu    sync.Mutex
	items []dto.TrackPayload
}

func (q *fakeQueue) Append(payload dto.TrackPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
	return nil
}

func (q *fakeQueue) DrainAll() ([]dto.TrackPayload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out, nil
}

func (q *fakeQueue) Len() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

// fakeNotifier records forwarded backend commands.
type fakeNotifier struct {
	mu       sync.Mutex
	commands []string
}

func (n *fakeNotifier) Notify(command string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.commands = append(n.commands, command)
}

func (n *fakeNotifier) received() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.commands))
	copy(out, n.commands)
	return out
}
