package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-ppm-raytracer/pkg/core"
	"github.com/df07/go-ppm-raytracer/pkg/renderer"
	"github.com/gorilla/websocket"
)

const (
	requestTimeout = 10 * time.Second
	writeTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSEvent is one message sent to a websocket client
type WSEvent struct {
	Type string          `json:"type"` // "console", "progress", "complete", "error"
	Data json.RawMessage `json:"data"`
}

// ProgressUpdate is sent each time a full row of pixels has been rendered
type ProgressUpdate struct {
	Row             int `json:"row"`
	TotalRows       int `json:"totalRows"`
	CompletedPixels int `json:"completedPixels"`
	TotalPixels     int `json:"totalPixels"`
}

// CompleteUpdate carries the finished image
type CompleteUpdate struct {
	Scene string `json:"scene"`
	Stats Stats  `json:"stats"`
	Image string `json:"image"` // P3 text
}

// ErrorUpdate reports why a render did not complete
type ErrorUpdate struct {
	Message string `json:"message"`
}

// renderStream serializes all writes to a websocket connection
type renderStream struct {
	ctx    context.Context
	events chan WSEvent
	done   chan struct{}
}

// ctxWriter fails writes once the client has gone away, which aborts the render
type ctxWriter struct {
	ctx context.Context
	buf *bytes.Buffer
}

func (w ctxWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	return w.buf.Write(p)
}

// handleRenderWS renders one request per connection, streaming console output
// and row progress before the final image.
func (s *Server) handleRenderWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := s.startWriter(ctx, cancel, conn)

	var req RenderRequest
	conn.SetReadDeadline(time.Now().Add(requestTimeout))
	if err := conn.ReadJSON(&req); err != nil {
		stream.send(WSEvent{Type: "error", Data: mustJSON(ErrorUpdate{Message: fmt.Sprintf("Invalid request: %v", err)})})
		stream.close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	// The client sends nothing else; a read error means it went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := validateRenderRequest(&req); err != nil {
		stream.send(WSEvent{Type: "error", Data: mustJSON(ErrorUpdate{Message: fmt.Sprintf("Invalid request: %v", err)})})
		stream.close()
		return
	}
	job, err := newRenderJob(&req)
	if err != nil {
		stream.send(WSEvent{Type: "error", Data: mustJSON(ErrorUpdate{Message: fmt.Sprintf("Invalid request: %v", err)})})
		stream.close()
		return
	}

	consoleChan, webLogger := s.setupConsoleLogging()
	var consoleWG sync.WaitGroup
	consoleWG.Add(1)
	go func() {
		defer consoleWG.Done()
		s.streamConsoleMessages(consoleChan, stream)
	}()

	var buf bytes.Buffer
	stats, err := job.render(ctxWriter{ctx: ctx, buf: &buf}, stream.progressFunc(job.width()), webLogger)

	// Forward everything the render logged before the final event
	close(consoleChan)
	consoleWG.Wait()

	if err != nil {
		stream.send(WSEvent{Type: "error", Data: mustJSON(ErrorUpdate{Message: fmt.Sprintf("Rendering failed: %v", err)})})
	} else {
		stream.send(WSEvent{Type: "complete", Data: mustJSON(CompleteUpdate{
			Scene: req.Scene,
			Stats: newStats(stats),
			Image: buf.String(),
		})})
	}
	stream.close()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// startWriter starts the single goroutine allowed to write to conn
func (s *Server) startWriter(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) *renderStream {
	stream := &renderStream{
		ctx:    ctx,
		events: make(chan WSEvent, 100),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(stream.done)
		for event := range stream.events {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				cancel()
				// Keep draining so senders never block
				for range stream.events {
				}
				return
			}
		}
	}()
	return stream
}

// send queues an event unless the client is gone
func (rs *renderStream) send(event WSEvent) {
	select {
	case rs.events <- event:
	case <-rs.ctx.Done():
	}
}

// close flushes queued events and stops the writer
func (rs *renderStream) close() {
	close(rs.events)
	<-rs.done
}

// progressFunc reports progress each time a row of width pixels completes
func (rs *renderStream) progressFunc(width int) renderer.ProgressFunc {
	return func(completed, total int) {
		if width <= 0 || completed%width != 0 {
			return
		}
		rs.send(WSEvent{Type: "progress", Data: mustJSON(ProgressUpdate{
			Row:             completed / width,
			TotalRows:       total / width,
			CompletedPixels: completed,
			TotalPixels:     total,
		})})
	}
}

func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	webLogger := NewWebLogger(newRenderID(), consoleChan, s.logger)
	return consoleChan, webLogger
}

// streamConsoleMessages forwards console messages until consoleChan is closed
func (s *Server) streamConsoleMessages(consoleChan <-chan ConsoleMessage, stream *renderStream) {
	for msg := range consoleChan {
		stream.send(WSEvent{Type: "console", Data: mustJSON(msg)})
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return data
}
