package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/balance/internal/model"
)

func TestNonBlockingReader_ReadLine(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedValue string
		expectError   bool
	}{
		{name: "successful read", input: "test input\n", expectedValue: "test input"},
		{name: "read with extra whitespace", input: "  test input  \n", expectedValue: "test input"},
		{name: "empty line", input: "\n", expectedValue: ""},
		{name: "final line without newline", input: "want", expectedValue: "want"},
		{name: "end of input", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nbr := NewNonBlockingReader(strings.NewReader(tt.input))
			result, err := nbr.ReadLine(context.Background())

			if tt.expectError {
				assert.ErrorIs(t, err, io.EOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValue, result)
		})
	}
}

func TestNonBlockingReader_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()

	nbr := NewNonBlockingReader(pr)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := nbr.ReadLine(ctx)
	assert.ErrorIs(t, err, ErrInputCancelled)
}

func TestNewNonBlockingReaderPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewNonBlockingReader(nil) })
}

func TestPromptLabel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLabel model.Label
		wantOK    bool
	}{
		{name: "need", input: "need\n", wantLabel: model.LabelNeed, wantOK: true},
		{name: "short want", input: "w\n", wantLabel: model.LabelWant, wantOK: true},
		{name: "synonym", input: "Essential\n", wantLabel: model.LabelNeed, wantOK: true},
		{name: "skip", input: "skip\n"},
		{name: "blank", input: "\n"},
		{name: "retries after nonsense", input: "maybe\nwant\n", wantLabel: model.LabelWant, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			nbr := NewNonBlockingReader(strings.NewReader(tt.input))

			label, ok, err := nbr.PromptLabel(context.Background(), &out, "Was this a need or a want?")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, label)
			assert.Contains(t, out.String(), "Was this a need or a want?")
		})
	}
}
