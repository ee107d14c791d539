package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Veraticus/balance/internal/model"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// NonBlockingReader provides context-aware input reading that can be interrupted.
type NonBlockingReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewNonBlockingReader creates a new non-blocking reader.
func NewNonBlockingReader(reader io.Reader) *NonBlockingReader {
	if reader == nil {
		panic("reader cannot be nil")
	}

	return &NonBlockingReader{
		reader: bufio.NewReader(reader),
	}
}

// ReadString reads a string until delim, respecting context cancellation.
// A canceled read leaves its goroutine running until input arrives.
func (r *NonBlockingReader) ReadString(ctx context.Context, delim byte) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()
		value, err := r.reader.ReadString(delim)
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		return res.value, res.err
	}
}

// ReadLine reads a line, respecting context cancellation.
func (r *NonBlockingReader) ReadLine(ctx context.Context) (string, error) {
	line, err := r.ReadString(ctx, '\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptLabel asks for a need/want verdict until it gets one. An empty answer
// or "skip" returns ok=false.
func (r *NonBlockingReader) PromptLabel(ctx context.Context, w io.Writer, question string) (model.Label, bool, error) {
	for {
		if _, err := fmt.Fprint(w, FormatPrompt(question+" [need/want/skip]")); err != nil {
			return "", false, err
		}

		answer, err := r.ReadLine(ctx)
		if err != nil {
			return "", false, err
		}

		switch strings.ToLower(answer) {
		case "", "s", "skip":
			return "", false, nil
		case "n":
			return model.LabelNeed, true, nil
		case "w":
			return model.LabelWant, true, nil
		}

		label, err := model.ParseLabel(answer)
		if err == nil && label.IsDecisive() {
			return label, true, nil
		}
		if _, err := fmt.Fprintln(w, FormatError("Please answer need, want or skip")); err != nil {
			return "", false, err
		}
	}
}
