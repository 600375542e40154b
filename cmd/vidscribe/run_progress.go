package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	gpprogress "github.com/jedib0t/go-pretty/v6/progress"

	"vidscribe/internal/logging"
	"vidscribe/internal/progress"
	"vidscribe/internal/queue"
)

const (
	viewRefreshInterval = 200 * time.Millisecond
	trackerUnits        = 1000
	plainLogBucket      = 25
)

// progressView renders the sink until stop is called. Views only read the
// sink through Snapshot; draining belongs to the job-table persister.
type progressView interface {
	stop()
}

func startProgressView(out io.Writer, batch queue.Batch, sink *progress.Sink, live bool) progressView {
	names := make(map[int64]string, len(batch.Jobs))
	for _, job := range batch.Jobs {
		names[job.ID] = filepath.Base(job.SourcePath)
	}
	if live {
		return startLiveView(out, names, sink)
	}
	return startPlainView(out, names, sink)
}

type pollingView struct {
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (p *pollingView) init() {
	p.quit = make(chan struct{})
	p.done = make(chan struct{})
}

// loop calls render on every tick and once more after stop.
func (p *pollingView) loop(sink *progress.Sink, render func([]progress.Update), finish func()) {
	defer close(p.done)
	ticker := time.NewTicker(viewRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.quit:
			render(sink.Snapshot())
			if finish != nil {
				finish()
			}
			return
		case <-ticker.C:
			render(sink.Snapshot())
		}
	}
}

func (p *pollingView) stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	<-p.done
}

type liveView struct {
	pollingView
	writer   gpprogress.Writer
	names    map[int64]string
	trackers map[int64]*gpprogress.Tracker
}

func startLiveView(out io.Writer, names map[int64]string, sink *progress.Sink) *liveView {
	pw := gpprogress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(viewRefreshInterval / 2)
	pw.SetStyle(gpprogress.StyleDefault)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Value = false
	pw.Style().Visibility.Time = true
	pw.Style().Visibility.Percentage = true

	v := &liveView{
		writer:   pw,
		names:    names,
		trackers: make(map[int64]*gpprogress.Tracker, len(names)),
	}
	v.init()
	for _, id := range sink.JobIDs() {
		tracker := &gpprogress.Tracker{
			Message: v.message(id, queue.StatusPending),
			Total:   trackerUnits,
			Units:   gpprogress.UnitsDefault,
		}
		v.trackers[id] = tracker
		pw.AppendTracker(tracker)
	}

	go pw.Render()
	// Stop is ignored until the render loop is running.
	for deadline := time.Now().Add(time.Second); !pw.IsRenderInProgress() && time.Now().Before(deadline); {
		time.Sleep(5 * time.Millisecond)
	}
	go v.loop(sink, v.render, v.finish)
	return v
}

func (v *liveView) message(id int64, status queue.Status) string {
	return fmt.Sprintf("#%d %s (%s)", id, v.names[id], formatStatusLabel(status))
}

func (v *liveView) render(updates []progress.Update) {
	for _, u := range updates {
		tracker, ok := v.trackers[u.JobID]
		if !ok || tracker.IsDone() {
			continue
		}
		tracker.UpdateMessage(v.message(u.JobID, u.Status))
		tracker.SetValue(int64(u.Progress * trackerUnits))
		switch u.Status {
		case queue.StatusCompleted:
			tracker.MarkAsDone()
		case queue.StatusFailed, queue.StatusCancelled:
			tracker.MarkAsErrored()
		}
	}
}

func (v *liveView) finish() {
	v.writer.Stop()
	for v.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

// plainView prints one line per status change and per progress bucket, for
// pipes and log files.
type plainView struct {
	pollingView
	out      io.Writer
	names    map[int64]string
	total    int
	samplers map[int64]*logging.ProgressSampler
}

func startPlainView(out io.Writer, names map[int64]string, sink *progress.Sink) *plainView {
	v := &plainView{
		out:      out,
		names:    names,
		total:    len(names),
		samplers: make(map[int64]*logging.ProgressSampler, len(names)),
	}
	v.init()
	go v.loop(sink, v.render, nil)
	return v
}

func (v *plainView) render(updates []progress.Update) {
	for i, u := range updates {
		if u.Status == queue.StatusPending {
			continue
		}
		sampler, ok := v.samplers[u.JobID]
		if !ok {
			sampler = logging.NewProgressSampler(plainLogBucket)
			v.samplers[u.JobID] = sampler
		}
		if !sampler.ShouldLog(u.Progress, string(u.Status)) {
			continue
		}
		fmt.Fprintln(v.out, formatPlainLine(i+1, v.total, v.names[u.JobID], u))
	}
}

func formatPlainLine(position, total int, name string, u progress.Update) string {
	line := fmt.Sprintf("[%d/%d] %s: %s", position, total, name, formatStatusLabel(u.Status))
	switch u.Status {
	case queue.StatusRecognizing:
		line += fmt.Sprintf(" %.0f%%", u.Progress*100)
	case queue.StatusFailed:
		if u.Error != "" {
			line += " - " + u.Error
		}
	}
	return line
}
