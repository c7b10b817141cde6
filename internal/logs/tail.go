package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const pollInterval = 500 * time.Millisecond

// Tail returns up to limit trailing lines from the file at path. A limit of
// zero or less returns every line. The returned offset marks the end of the
// file so callers can continue reading with Follow. A missing file yields no
// lines and a zero offset.
func Tail(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := newLineScanner(file)
	var lines []string
	if limit > 0 {
		// Ring buffer keeps memory bounded regardless of file size.
		ring := make([]string, limit)
		count, idx := 0, 0
		for scanner.Scan() {
			ring[idx] = scanner.Text()
			idx = (idx + 1) % limit
			if count < limit {
				count++
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		lines = make([]string, count)
		if count == limit {
			for i := 0; i < count; i++ {
				lines[i] = ring[(idx+i)%limit]
			}
		} else {
			copy(lines, ring[:count])
		}
	} else {
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, offset, nil
}

// Follow streams lines appended after offset to fn until the context is
// cancelled or fn returns an error. When the file shrinks below the current
// offset the read restarts from the beginning, which covers log rotation.
func Follow(ctx context.Context, path string, offset int64, fn func(line string) error) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				offset = 0
				continue
			}
			return fmt.Errorf("stat log file: %w", err)
		}
		if info.Size() < offset {
			offset = 0
		}

		lines, next, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, line := range lines {
			if err := fn(line); err != nil {
				return err
			}
		}
	}
}

func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, offset, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

func newLineScanner(file *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
