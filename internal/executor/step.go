package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// runStep runs a shell command in dir with a wall-clock timeout, streaming
// each stdout/stderr line into the log pipeline. Lines flow through a
// bounded channel so the child process never blocks on publishing.
func (s *Service) runStep(ctx context.Context, name, command, dir string) error {
	s.publishf(ctx, "Running: %s", command)

	stepCtx, cancel := context.WithTimeout(ctx, s.cfg.StepTimeout)
	defer cancel()

	cmd := exec.CommandContext(stepCtx, "sh", "-c", command)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: attach stdout: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: attach stderr: %w", name, err)
	}

	lines := make(chan string, s.cfg.LineBuffer)
	var pumps sync.WaitGroup
	pumps.Add(2)
	go pumpLines(stdout, lines, &pumps)
	go pumpLines(stderr, lines, &pumps)

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for line := range lines {
			s.publish(ctx, line)
		}
	}()

	if err := cmd.Start(); err != nil {
		close(lines)
		<-drained
		return fmt.Errorf("%s: start: %w", name, err)
	}
	go func() {
		pumps.Wait()
		close(lines)
	}()

	waitErr := cmd.Wait()
	<-drained

	if stepCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timed out after %s", name, s.cfg.StepTimeout)
	}
	if waitErr != nil {
		return fmt.Errorf("%s failed: %w", name, waitErr)
	}
	s.publishf(ctx, "Completed: %s", name)
	return nil
}

// maxLineLen caps how much of a single output line is buffered before it
// is flushed as its own event. Without the cap, a process printing an
// unbounded line would grow memory; with it the pipe keeps draining.
const maxLineLen = 1024 * 1024

// pumpLines copies lines from r into out until EOF. Lines longer than
// maxLineLen are split into chunks so the reader never stops consuming
// the pipe, which would deadlock the child on a full pipe buffer.
func pumpLines(r io.Reader, out chan<- string, wg *sync.WaitGroup) {
	defer wg.Done()
	br := bufio.NewReaderSize(r, 64*1024)
	var partial []byte
	for {
		chunk, err := br.ReadSlice('\n')
		partial = append(partial, chunk...)
		if err == bufio.ErrBufferFull {
			if len(partial) >= maxLineLen {
				out <- string(partial)
				partial = partial[:0]
			}
			continue
		}
		if n := len(partial); n > 0 && partial[n-1] == '\n' {
			partial = partial[:n-1]
		}
		if len(partial) > 0 || err == nil {
			out <- string(partial)
		}
		partial = partial[:0]
		if err != nil {
			return
		}
	}
}
