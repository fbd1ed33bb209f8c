// Package stats merges the parser, scheduler, and controller counters into
// one pull-based snapshot for external observability, and can journal
// snapshots as length-prefixed msgpack records for offline inspection.
package stats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/seisview/seisview/pkg/decomp"
	"github.com/seisview/seisview/pkg/quality"
	"github.com/seisview/seisview/pkg/tilewire"
)

// Snapshot is one merged observation of the whole ingest pipeline.
type Snapshot struct {
	Time       quality.EpochMillis `json:"time" msgpack:"time"`
	Parser     tilewire.Stats      `json:"parser" msgpack:"parser"`
	Scheduler  decomp.Stats        `json:"scheduler" msgpack:"scheduler"`
	Controller quality.Snapshot    `json:"controller" msgpack:"controller"`
}

// Aggregator reads the three stat sources. Components may be nil; their
// section of the snapshot stays zero.
type Aggregator struct {
	decoder    *tilewire.Decoder
	scheduler  *decomp.Scheduler
	controller *quality.Controller
}

// NewAggregator wires the aggregator to its sources.
func NewAggregator(d *tilewire.Decoder, s *decomp.Scheduler, c *quality.Controller) *Aggregator {
	return &Aggregator{decoder: d, scheduler: s, controller: c}
}

// Snapshot captures the current counters of every wired component.
func (a *Aggregator) Snapshot() *Snapshot {
	snap := &Snapshot{Time: quality.Now()}
	if a.decoder != nil {
		snap.Parser = a.decoder.Stats()
	}
	if a.scheduler != nil {
		snap.Scheduler = a.scheduler.Stats()
	}
	if a.controller != nil {
		snap.Controller = a.controller.Snapshot()
	}
	return snap
}

// maxRecordSize rejects absurd length prefixes when reading a journal from
// an untrusted file.
const maxRecordSize = 16 << 20

// Journal appends snapshots to a writer as msgpack records, each preceded
// by a little-endian uint32 length. Safe for concurrent use.
type Journal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJournal creates a journal writing to w.
func NewJournal(w io.Writer) *Journal {
	return &Journal{w: w}
}

// Append writes one snapshot record.
func (j *Journal) Append(s *Snapshot) error {
	body, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("stats: encode snapshot: %w", err)
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("stats: write journal: %w", err)
	}
	if _, err := j.w.Write(body); err != nil {
		return fmt.Errorf("stats: write journal: %w", err)
	}
	return nil
}

// ReadJournal iterates the snapshots in a journal stream. Iteration stops
// at the first malformed record with a non-nil error.
func ReadJournal(r io.Reader) iter.Seq2[*Snapshot, error] {
	return func(yield func(*Snapshot, error) bool) {
		for {
			var prefix [4]byte
			if _, err := io.ReadFull(r, prefix[:]); err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, fmt.Errorf("stats: read journal: %w", err))
				}
				return
			}
			n := binary.LittleEndian.Uint32(prefix[:])
			if n > maxRecordSize {
				yield(nil, fmt.Errorf("stats: journal record of %d bytes exceeds limit", n))
				return
			}
			body := make([]byte, n)
			if _, err := io.ReadFull(r, body); err != nil {
				yield(nil, fmt.Errorf("stats: read journal: %w", err))
				return
			}
			var snap Snapshot
			if err := msgpack.Unmarshal(body, &snap); err != nil {
				yield(nil, fmt.Errorf("stats: decode snapshot: %w", err))
				return
			}
			if !yield(&snap, nil) {
				return
			}
		}
	}
}
