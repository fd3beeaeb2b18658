package logging

import (
	"encoding/json"
	"fmt"
	"time"
)

// CoroutineTick is one run_coroutine step: one line per tick of a
// coroutine's stack dispatch (spec.md §4.D).
type CoroutineTick struct {
	Timestamp  time.Time `json:"timestamp"`
	CID        uint64    `json:"cid"`
	Element    string    `json:"element"`
	NextStep   string    `json:"next_step"`
	DurationUs int64     `json:"duration_us"`
	DidWork    bool      `json:"did_work"`
	Error      string    `json:"error,omitempty"`
}

// CoroutineLog writes one line per coroutine tick, console and/or a JSON
// file sink, sharing Logger's two-sink configuration.
type CoroutineLog struct {
	logger *Logger
}

var defaultCoroutineLog = &CoroutineLog{logger: Default()}

// DefaultCoroutineLog returns the process-wide coroutine tick logger,
// sharing Default()'s console/file sink configuration.
func DefaultCoroutineLog() *CoroutineLog { return defaultCoroutineLog }

// Log writes one tick entry. Ticks that did no work are still useful for
// latency auditing but are cheap enough to always log at this layer;
// callers that want to sample can gate the call instead.
func (c *CoroutineLog) Log(entry *CoroutineTick) {
	entry.Timestamp = time.Now()

	c.logger.mu.Lock()
	defer c.logger.mu.Unlock()

	if !c.logger.enabled {
		return
	}

	if c.logger.console {
		status := "."
		if entry.Error != "" {
			status = "!"
		} else if !entry.DidWork {
			status = "-"
		}
		fmt.Printf("[coroutine] %s cid=%d element=%s next=%s %dus\n",
			status, entry.CID, entry.Element, entry.NextStep, entry.DurationUs)
		if entry.Error != "" {
			fmt.Printf("[coroutine]   error: %s\n", entry.Error)
		}
	}

	if c.logger.file != nil {
		data, _ := json.Marshal(entry)
		c.logger.file.Write(append(data, '\n'))
	}
}
