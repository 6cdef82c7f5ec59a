package main

import (
	"log"

	"github.com/cognusion/go-racket"

	"github.com/redacter/dlpcopy/internal/fsconn"
)

// racketReporter adapts internal/fsconn.Reporter onto a racket.Progress
// channel, mirroring how ripfix's worker function writes
// racket.PMessagef lines and racket.PUpdate(1) bar ticks per unit of
// work — here, one tick per file rather than per PDF (§4.8 "Always emit
// per-file observable progress (one unit per file, not per byte)").
type racketReporter struct {
	id           any
	progressChan chan<- racket.Progress
}

func (r *racketReporter) Report(message string) {
	r.progressChan <- racket.PMessagef("[%v] %s", r.id, message)
	r.progressChan <- racket.PUpdate(1)
}

var _ fsconn.Reporter = (*racketReporter)(nil)

// newLoggers builds the stderr/debug logger pair the teacher's main()
// constructs inline; split out of runCp, its only caller (ls does no
// logging).
func newLoggers(debug bool) (outLog, debugLog *log.Logger) {
	outLog = log.New(logWriter, "", log.LstdFlags)
	debugLog = log.New(discardWriter, "", 0)
	if debug {
		debugLog = log.New(logWriter, "[DEBUG] ", log.Lshortfile)
	}
	return outLog, debugLog
}
