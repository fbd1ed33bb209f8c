package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pierrec/lz4/v4"

	"github.com/seisview/seisview/pkg/quality"
	"github.com/seisview/seisview/pkg/tilewire"
)

var testUpgrader = websocket.Upgrader{}

// newTestServer runs handler for each websocket connection and returns the
// ws:// URL to dial.
func newTestServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// keepReading blocks the handler until the peer goes away.
func keepReading(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func rawTileFrame(w, h uint16, fill byte) ([]byte, []byte) {
	raw := bytes.Repeat([]byte{fill}, int(w)*int(h))
	header := &tilewire.TileHeader{
		Plane:             tilewire.PlaneInline,
		TileW:             w,
		TileH:             h,
		DataType:          tilewire.U8,
		Compression:       tilewire.CompressionNone,
		UncompressedBytes: uint32(len(raw)),
	}
	return tilewire.EncodeFrame(header, raw), raw
}

func TestSession_ReceivesUncompressedTile(t *testing.T) {
	frame, raw := rawTileFrame(8, 8, 0x42)
	url := newTestServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			t.Errorf("write frame: %v", err)
		}
		keepReading(conn)
	})

	s, err := Dial(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	for tile, err := range s.Tiles() {
		if err != nil {
			t.Fatalf("Tiles: %v", err)
		}
		if tile.Header.TileW != 8 || tile.Header.TileH != 8 {
			t.Errorf("header: %+v", tile.Header)
		}
		if !bytes.Equal(tile.Data, raw) {
			t.Error("tile data mismatch")
		}
		break
	}
}

func TestSession_ReceivesLZ4Tile(t *testing.T) {
	raw := bytes.Repeat([]byte("trace"), 820) // 4100 bytes, compressible
	raw = raw[:4096]
	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil || n == 0 || n >= len(raw) {
		t.Fatalf("CompressBlock: n=%d err=%v", n, err)
	}
	header := &tilewire.TileHeader{
		Plane:             tilewire.PlaneTimeDepth,
		TileW:             64,
		TileH:             64,
		DataType:          tilewire.U8,
		Compression:       tilewire.CompressionLZ4,
		UncompressedBytes: 4096,
	}
	frame := tilewire.EncodeFrame(header, compressed[:n])

	url := newTestServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			t.Errorf("write frame: %v", err)
		}
		keepReading(conn)
	})

	s, err := Dial(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	for tile, err := range s.Tiles() {
		if err != nil {
			t.Fatalf("Tiles: %v", err)
		}
		if !bytes.Equal(tile.Data, raw) {
			t.Error("decompressed tile mismatch")
		}
		break
	}
}

func TestSession_MalformedFramesAreCounted(t *testing.T) {
	frame, _ := rawTileFrame(4, 4, 1)
	bad := bytes.Clone(frame)
	bad[1] = 99 // undefined plane
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.BinaryMessage, bad)
		conn.WriteMessage(websocket.BinaryMessage, frame)
		keepReading(conn)
	})

	s, err := Dial(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	for _, err := range s.Tiles() {
		if err != nil {
			t.Fatalf("Tiles: %v", err)
		}
		break // the good frame arrived
	}
	st := s.Decoder().Stats()
	if st.TotalFrames != 2 || st.DroppedFrames != 1 {
		t.Errorf("decoder stats: %+v", st)
	}
}

func TestSession_ControlMessages(t *testing.T) {
	url := newTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"volume","inlines":600,"crosslines":400,"samples":1500,"dtype":"f32"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"telemetry","x":1}`))
		keepReading(conn)
	})

	s, err := Dial(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	var got []ControlMessage
	var errs []error
	for msg, err := range s.Controls() {
		if err != nil {
			errs = append(errs, err)
		} else {
			got = append(got, msg)
		}
		if len(got)+len(errs) == 2 {
			break
		}
	}

	if len(got) != 1 {
		t.Fatalf("got %d control messages, want 1", len(got))
	}
	vol, ok := got[0].(*VolumeInfo)
	if !ok || vol.Inlines != 600 || vol.DataType != "f32" {
		t.Errorf("control message: %#v", got[0])
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "unknown control message") {
		t.Errorf("errors: %v", errs)
	}
}

func TestSession_SendsQualityPreference(t *testing.T) {
	received := make(chan []byte, 1)
	url := newTestServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
		keepReading(conn)
	})

	s, err := Dial(context.Background(), url, Options{})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	s.Controller().ForceQuality(quality.Settings{DataType: tilewire.U8, Downsample: 2})

	select {
	case data := <-received:
		var msg quality.PreferenceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Type != "quality" || msg.DataType != "u8" || msg.Downsample != 2 {
			t.Errorf("preference: %+v", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the preference message")
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"volume", `{"type":"volume","inlines":1}`, false},
		{"quality ack", `{"type":"quality_ack","dtype":"u8","downsample":2}`, false},
		{"server error", `{"type":"error","message":"bad slice"}`, false},
		{"unknown type", `{"type":"mystery"}`, true},
		{"not json", `tile?`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseControl([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
