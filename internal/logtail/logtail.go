// Package logtail reads daemon log files incrementally so the CLI can show
// recent activity and follow new lines without holding the file open.
package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const maxLineBytes = 1024 * 1024

// Request controls a single read of the log file. An Offset below zero asks
// for the last Limit lines; otherwise reading starts at Offset. When Wait is
// positive and no lines are available, Read polls until new lines appear or
// the wait elapses.
type Request struct {
	Offset int64
	Limit  int
	Wait   time.Duration
}

// Chunk is the outcome of one read. Offset is where the next read should
// resume from.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Read returns log lines per the request. A missing file is not an error;
// it yields an empty chunk at offset zero so callers can poll until the
// daemon starts writing.
func Read(ctx context.Context, path string, req Request) (Chunk, error) {
	if req.Wait < 0 {
		req.Wait = 0
	}

	var (
		lines  []string
		offset int64
		err    error
	)
	if req.Offset < 0 {
		lines, offset, err = lastLines(path, req.Limit)
	} else {
		lines, offset, err = readFrom(path, req.Offset)
	}
	if err != nil {
		return Chunk{Offset: req.Offset}, err
	}
	if len(lines) > 0 || req.Wait == 0 {
		return Chunk{Lines: lines, Offset: offset}, nil
	}

	return poll(ctx, path, offset, req.Wait)
}

// lastLines scans the whole file keeping only the trailing limit lines, and
// reports the end-of-file offset for resuming.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	if limit <= 0 {
		lines = nil
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	return lines, end, nil
}

// readFrom returns every complete line at or after offset. An offset past the
// current size (log rotation) restarts from the beginning of the file.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

func poll(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Chunk{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}

		lines, next, err := readFrom(path, offset)
		if err != nil {
			return Chunk{Offset: offset}, err
		}
		if len(lines) > 0 {
			return Chunk{Lines: lines, Offset: next}, nil
		}
		offset = next

		if time.Now().After(deadline) {
			return Chunk{Offset: offset}, nil
		}
	}
}
