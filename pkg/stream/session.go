// Package stream connects the ingest core to a tile server over a
// websocket. A Session owns the frame decoder, the decompression
// scheduler, and the quality controller for one connection, routes binary
// tile frames and JSON control messages to them, and delivers decoded
// tiles through an iterator.
package stream

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/seisview/seisview/pkg/decomp"
	"github.com/seisview/seisview/pkg/quality"
	"github.com/seisview/seisview/pkg/tilewire"
)

// Tile is one decoded tile ready for the renderer: validated header plus
// fully decompressed sample bytes.
type Tile struct {
	Header tilewire.TileHeader
	Data   []byte
}

// Options configures a Session. Zero values take package defaults.
type Options struct {
	Limits    tilewire.Limits
	Scheduler decomp.Config
	Quality   quality.Config

	// TileBuffer is the capacity of the decoded tile channel.
	TileBuffer int
}

const defaultTileBuffer = 64

type controlItem struct {
	msg ControlMessage
	err error
}

// Session is one ingest connection. Create with Dial, release with Close.
// Tiles complete out of submission order; consumers must key on the tile
// header, not on arrival order.
type Session struct {
	id      string
	conn    *websocket.Conn
	decoder *tilewire.Decoder
	sched   *decomp.Scheduler
	ctrl    *quality.Controller

	cancel  context.CancelFunc
	tiles   chan *Tile
	control chan controlItem
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	readErr   atomic.Pointer[error]

	backoffDrops atomic.Uint64
}

// Dial connects to a tile server and starts the ingest loops.
func Dial(ctx context.Context, url string, opts Options) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if opts.TileBuffer <= 0 {
		opts.TileBuffer = defaultTileBuffer
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:      uuid.NewString(),
		conn:    conn,
		decoder: tilewire.NewDecoder(opts.Limits),
		sched:   decomp.NewScheduler(opts.Scheduler),
		cancel:  cancel,
		tiles:   make(chan *Tile, opts.TileBuffer),
		control: make(chan controlItem, 16),
		done:    make(chan struct{}),
	}
	s.ctrl = quality.NewController(opts.Quality, quality.SenderFunc(s.sendPreference))

	go s.receiveLoop()
	go s.ctrl.Run(runCtx)
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Decoder exposes the frame decoder for stats aggregation.
func (s *Session) Decoder() *tilewire.Decoder { return s.decoder }

// Scheduler exposes the decompression scheduler for stats aggregation.
func (s *Session) Scheduler() *decomp.Scheduler { return s.sched }

// Controller exposes the quality controller for metrics feeding, manual
// overrides, and stats aggregation.
func (s *Session) Controller() *quality.Controller { return s.ctrl }

// BackoffDrops returns how many frames were decoded but discarded because
// the scheduler asked for backpressure.
func (s *Session) BackoffDrops() uint64 { return s.backoffDrops.Load() }

// Tiles iterates decoded tiles until the session ends. A terminal receive
// error is yielded last with a nil tile.
func (s *Session) Tiles() iter.Seq2[*Tile, error] {
	return func(yield func(*Tile, error) bool) {
		for {
			select {
			case tile := <-s.tiles:
				if !yield(tile, nil) {
					return
				}
			case <-s.done:
				// Drain tiles completed before shutdown.
				for {
					select {
					case tile := <-s.tiles:
						if !yield(tile, nil) {
							return
						}
					default:
						if errp := s.readErr.Load(); errp != nil {
							yield(nil, *errp)
						}
						return
					}
				}
			}
		}
	}
}

// Controls iterates server control messages. Malformed or unknown messages
// are yielded as errors; iteration continues afterwards.
func (s *Session) Controls() iter.Seq2[ControlMessage, error] {
	return func(yield func(ControlMessage, error) bool) {
		for {
			select {
			case item := <-s.control:
				if !yield(item.msg, item.err) {
					return
				}
			case <-s.done:
				return
			}
		}
	}
}

// Close tears the session down: the connection, the scheduler, and the
// control loop. Idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.conn.Close()
		s.sched.Close()
		close(s.done)
	})
	return nil
}

func (s *Session) receiveLoop() {
	defer s.Close()
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.readErr.Store(&err)
			}
			return
		}
		switch {
		case msgType == websocket.BinaryMessage && tilewire.LooksLikeTileFrame(data):
			s.handleFrame(data)
		case msgType == websocket.TextMessage:
			msg, err := ParseControl(data)
			select {
			case s.control <- controlItem{msg: msg, err: err}:
			case <-s.done:
				return
			}
		default:
			slog.Debug("stream: unrecognized message", "session", s.id, "type", msgType, "len", len(data))
		}
	}
}

func (s *Session) handleFrame(data []byte) {
	rec, err := s.decoder.Decode(data)
	if err != nil {
		// Malformed frames drop silently; the decoder counts them.
		slog.Debug("stream: frame rejected", "session", s.id, "err", err)
		return
	}
	if s.sched.ShouldBackOff() {
		s.backoffDrops.Add(1)
		return
	}
	task := s.sched.Submit(rec.Payload, rec.Header.Compression, int(rec.Header.UncompressedBytes))
	go func() {
		data, err := task.Result()
		if err != nil {
			slog.Debug("stream: decompression failed", "session", s.id, "task", task.ID(), "err", err)
			return
		}
		select {
		case s.tiles <- &Tile{Header: rec.Header, Data: data}:
		case <-s.done:
		}
	}()
}

// sendPreference is the controller's upstream channel: quality preference
// messages go to the server as JSON control messages.
func (s *Session) sendPreference(msg *quality.PreferenceMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}
