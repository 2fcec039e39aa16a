// Package commandtest provides command runners that stand in for the external
// corpus and windowing tools in tests.
package commandtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kingrea/mtprep/internal/command"
	"github.com/kingrea/mtprep/internal/lhotse"
)

// Recorder records requests and returns a preset outcome.
type Recorder struct {
	mu       sync.Mutex
	Response command.Response
	Err      error
	Requests []command.Request
}

// Run implements command.Runner.
func (r *Recorder) Run(_ context.Context, req command.Request) (command.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, req)
	return r.Response, r.Err
}

// Corpus emulates `lhotse download`, `lhotse prepare` and the windowing
// script. Prepared manifests hold two recordings per split with a handful of
// supervisions each.
type Corpus struct {
	mu    sync.Mutex
	calls []command.Request
	// Splits lists the splits prepare writes; nil writes none.
	Splits []string
	// FailOn makes a call fail when its rendered command line contains it.
	FailOn string
}

// Calls returns the requests seen so far.
func (c *Corpus) Calls() []command.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]command.Request(nil), c.calls...)
}

// Reset forgets recorded calls.
func (c *Corpus) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// Run implements command.Runner.
func (c *Corpus) Run(ctx context.Context, req command.Request) (command.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return command.Response{}, err
	}
	if c.FailOn != "" && strings.Contains(req.String(), c.FailOn) {
		return command.Response{ExitCode: 1, Stderr: "simulated failure"},
			&command.ExitError{Command: req.String(), ExitCode: 1, Stderr: "simulated failure"}
	}
	if len(req.Args) == 0 {
		return command.Response{}, fmt.Errorf("commandtest: empty request")
	}
	switch req.Args[0] {
	case "download":
		return command.Response{}, os.MkdirAll(req.Args[2], 0o755)
	case "prepare":
		return command.Response{}, c.prepare(req.Args)
	default:
		return command.Response{}, window(req.Args)
	}
}

func (c *Corpus) prepare(args []string) error {
	corpus, outDir := args[1], args[3]
	name := corpus
	for i := 4; i+1 < len(args); i++ {
		if args[i] == "--mic" {
			name = corpus + "-" + args[i+1]
		}
	}
	for _, split := range c.Splits {
		recs, sups := Manifests(split)
		base := filepath.Join(outDir, name)
		if err := lhotse.WriteRecordings(base+"_recordings_"+split+".jsonl.gz", recs); err != nil {
			return err
		}
		if err := lhotse.WriteSupervisions(base+"_supervisions_"+split+".jsonl.gz", sups); err != nil {
			return err
		}
	}
	return nil
}

func window(args []string) error {
	var in, out string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--input":
			in = args[i+1]
		case "--output":
			out = args[i+1]
		}
	}
	if in == "" || out == "" {
		return fmt.Errorf("commandtest: unsupported command %v", args)
	}
	cuts, err := lhotse.ReadCuts(in)
	if err != nil {
		return err
	}
	return lhotse.WriteCuts(out, cuts)
}

// Manifests returns deterministic raw manifests for split.
func Manifests(split string) ([]lhotse.Recording, []lhotse.Supervision) {
	var recs []lhotse.Recording
	var sups []lhotse.Supervision
	for r := 0; r < 2; r++ {
		recID := fmt.Sprintf("%s-rec%d", split, r)
		recs = append(recs, lhotse.Recording{
			ID:           recID,
			Sources:      []lhotse.AudioSource{{Type: "file", Channels: []int{0}, Source: "/audio/" + recID + ".wav"}},
			SamplingRate: 16000,
			NumSamples:   16000 * 60,
			Duration:     60,
			ChannelIDs:   []int{0},
		})
		for s := 0; s < 3; s++ {
			sups = append(sups, lhotse.Supervision{
				ID:          fmt.Sprintf("%s-seg%d", recID, s),
				RecordingID: recID,
				Start:       float64(10 * s),
				Duration:    5,
				Channel:     []byte("0"),
				Text:        fmt.Sprintf("utterance %d", s),
				Speaker:     fmt.Sprintf("spk%d", s),
			})
		}
	}
	return recs, sups
}
