package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flightwatch/flight-replay/internal/replay"
)

// Recorder writes rendered frames to JSONL files, one file per UTC day.
// It implements the frame sink interface so it can sit next to the
// message-bus fanout.
type Recorder struct {
	outputDir string
	file      *os.File
	mu        sync.Mutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// New creates a new Recorder instance
func New(outputDir string) *Recorder {
	return &Recorder{
		outputDir: outputDir,
		stopChan:  make(chan struct{}),
	}
}

// Start opens today's file and starts the rotation timer
func (r *Recorder) Start() error {
	if err := r.rotateFile(); err != nil {
		return err
	}

	r.wg.Add(1)
	go r.rotationTimer()

	return nil
}

// Stop closes the current file and stops the rotation timer
func (r *Recorder) Stop() error {
	close(r.stopChan)
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// PublishFrame appends a frame as one JSON line to the current file
func (r *Recorder) PublishFrame(frame *replay.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.rotateFile(); err != nil {
			return err
		}
	}

	_, err = r.file.Write(append(data, '\n'))
	return err
}

// rotationTimer handles daily rotation at midnight UTC
func (r *Recorder) rotationTimer() {
	defer r.wg.Done()

	for {
		now := time.Now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		waitTime := nextMidnight.Sub(now)

		select {
		case <-time.After(waitTime):
			if err := r.rotateAndCompress(); err != nil {
				log.Printf("Error during frame log rotation: %v", err)
			}
		case <-r.stopChan:
			return
		}
	}
}

// rotateAndCompress rotates the current file and compresses the previous day's file
func (r *Recorder) rotateAndCompress() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	yesterdayFile := filepath.Join(r.outputDir, fmt.Sprintf("frames_%s.log", yesterday.Format("2006-01-02")))

	if _, err := os.Stat(yesterdayFile); err == nil {
		if err := r.compressFile(yesterdayFile); err != nil {
			return fmt.Errorf("failed to compress file: %w", err)
		}
	}

	return r.rotateFile()
}

// compressFile compresses a file using gzip and removes the original
func (r *Recorder) compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer target.Close()

	gzipWriter := gzip.NewWriter(target)
	if _, err := io.Copy(gzipWriter, source); err != nil {
		gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}

// rotateFile opens the log file for the current UTC day
func (r *Recorder) rotateFile() error {
	timestamp := time.Now().UTC().Format("2006-01-02")
	filename := filepath.Join(r.outputDir, fmt.Sprintf("frames_%s.log", timestamp))

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create frame log file: %w", err)
	}

	r.file = file
	return nil
}
