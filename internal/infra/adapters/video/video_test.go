//go:build !integration

package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"prospect-video-generator/internal/domain"
	"prospect-video-generator/internal/domain/model"
	"prospect-video-generator/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func collect(ch chan int) []int {
	close(ch)
	var out []int
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestSimulatedProcessor(t *testing.T) {
	timings := DefaultTimings().Scaled(100)
	p := NewSimulatedProcessor(timings, "https://videos.example.com/", newTestLogger())

	t.Run("with secondary video", func(t *testing.T) {
		ch := make(chan int, 4)
		res, err := p.Generate(context.Background(), adapter.GenerateRequest{JobID: "b-job-0", MainVideoRef: "m", SecondaryVideoRef: "s"}, ch)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := collect(ch); len(got) != 2 || got[0] != 40 || got[1] != 70 {
			t.Errorf("unexpected checkpoints %v", got)
		}
		if res.LandingPageURL != "https://videos.example.com/landing/b-job-0" || res.VideoURL == "" {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("without secondary video", func(t *testing.T) {
		ch := make(chan int, 4)
		if _, err := p.Generate(context.Background(), adapter.GenerateRequest{JobID: "j", MainVideoRef: "m"}, ch); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := collect(ch); len(got) != 2 || got[1] != 90 {
			t.Errorf("unexpected checkpoints %v", got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Generate(ctx, adapter.GenerateRequest{JobID: "j", MainVideoRef: "m"}, make(chan int, 4))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	if DefaultTimings().Total(true) != 4500*time.Millisecond || DefaultTimings().Total(false) != 3500*time.Millisecond {
		t.Error("unexpected default pipeline totals")
	}
}

func TestHTTPProcessor(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/jobs":
			var req adapter.GenerateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Prospect.Company == "broken" {
				_, _ = w.Write([]byte(`{"success":true,"data":{"id":"r1","status":"error","error":"bad site"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"r1","status":"processing","progress":15}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/jobs/r1":
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"success":true,"data":{"id":"r1","status":"processing","progress":40}}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":"r1","status":"completed","progress":100,"videoUrl":"https://cdn/v.mp4","landingPageUrl":"https://l/r1"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := NewHTTPProcessor(srv.URL, "", 5*time.Millisecond, newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	ch := make(chan int, 8)
	res, err := p.Generate(context.Background(), adapter.GenerateRequest{JobID: "b-job-0", MainVideoRef: "m"}, ch)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.VideoURL != "https://cdn/v.mp4" {
		t.Errorf("unexpected result %+v", res)
	}
	if got := collect(ch); len(got) != 2 || got[0] != 15 || got[1] != 40 {
		t.Errorf("unexpected checkpoints %v", got)
	}

	_, err = p.Generate(context.Background(), adapter.GenerateRequest{JobID: "x", MainVideoRef: "m", Prospect: model.Prospect{Company: "broken"}}, make(chan int, 8))
	if !errors.Is(err, domain.ErrService) || !strings.Contains(err.Error(), "bad site") {
		t.Errorf("expected ErrService with remote message, got %v", err)
	}

	down, _ := NewHTTPProcessor(srv.URL+"/missing", "", time.Millisecond, newTestLogger())
	if _, err := down.Generate(context.Background(), adapter.GenerateRequest{JobID: "x"}, make(chan int, 1)); !errors.Is(err, domain.ErrService) {
		t.Errorf("expected ErrService on 404, got %v", err)
	}
}

func TestNewLimited(t *testing.T) {
	inner := NewSimulatedProcessor(DefaultTimings(), "", newTestLogger())
	if NewLimited(inner, 0) != adapter.VideoProcessor(inner) {
		t.Error("expected inner processor when limit is disabled")
	}

	var running, peak atomic.Int32
	blocking := processorFunc(func(ctx context.Context, _ adapter.GenerateRequest, _ chan<- int) (*adapter.GenerateResult, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return &adapter.GenerateResult{}, nil
	})
	limited := NewLimited(blocking, 2)

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			_, _ = limited.Generate(context.Background(), adapter.GenerateRequest{}, nil)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}
	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent calls, got %d", peak.Load())
	}
}

type processorFunc func(ctx context.Context, req adapter.GenerateRequest, ch chan<- int) (*adapter.GenerateResult, error)

func (f processorFunc) Generate(ctx context.Context, req adapter.GenerateRequest, ch chan<- int) (*adapter.GenerateResult, error) {
	return f(ctx, req, ch)
}

func TestWSFeed(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"job_update","job":{"id":"b-job-1","status":"processing","progress":55}}`))
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	feed := NewWSFeed("ws"+strings.TrimPrefix(srv.URL, "http"), newTestLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan adapter.JobUpdate, 4)
	errc := make(chan error, 1)
	go func() { errc <- feed.Run(ctx, func(u adapter.JobUpdate) { got <- u }) }()

	select {
	case u := <-got:
		if u.JobID != "b-job-1" || u.Progress != 55 || u.Status != model.JobStatusProcessing {
			t.Errorf("unexpected update %+v", u)
		}
	case <-ctx.Done():
		t.Fatal("no update received")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
}
