// Package decomp runs tile payload decompression off the ingest hot path.
//
// A Scheduler owns a fixed pool of worker goroutines and a bounded FIFO
// queue. Submit never blocks: when the queue is full the oldest queued task
// is evicted and resolved with ErrBackpressure before the new task is
// enqueued, keeping the view fresh at the cost of completeness. Every
// payload, including uncompressed ones, goes through the pool so the
// scheduler counters describe all traffic.
//
// Each submitted task resolves exactly once: with decoded bytes, with a
// codec error, with ErrBackpressure, with ErrWorkerFault if its worker
// panicked, or with ErrClosed on disposal. A worker that faults is retired
// for the rest of the session; the pool continues with reduced capacity.
package decomp
