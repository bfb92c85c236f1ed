package assistant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/loomworks/loom/internal/ui"
)

// Display receives the assistant's text output for one run. Chunk is called
// zero or more times per turn as content arrives; Flush commits the turn's
// output. A turn ended by a loop-control signal is never flushed.
type Display interface {
	Chunk(text string)
	Flush()
}

// StreamDisplay prints chunks as they arrive and terminates the line on
// Flush. This is the default interactive mode.
type StreamDisplay struct {
	wrote bool
}

// NewStreamDisplay creates a live-printing display.
func NewStreamDisplay() *StreamDisplay {
	return &StreamDisplay{}
}

func (d *StreamDisplay) Chunk(text string) {
	if text == "" {
		return
	}
	fmt.Print(text)
	d.wrote = true
}

func (d *StreamDisplay) Flush() {
	if d.wrote {
		fmt.Println()
		d.wrote = false
	}
}

// BufferedDisplay accumulates the turn's text and renders it as markdown on
// Flush. Used when streaming output is disabled.
type BufferedDisplay struct {
	buf strings.Builder
}

// NewBufferedDisplay creates a render-at-end display.
func NewBufferedDisplay() *BufferedDisplay {
	return &BufferedDisplay{}
}

func (d *BufferedDisplay) Chunk(text string) {
	d.buf.WriteString(text)
}

func (d *BufferedDisplay) Flush() {
	text := strings.TrimSpace(d.buf.String())
	d.buf.Reset()
	if text != "" {
		fmt.Println(ui.RenderMarkdown(text))
	}
}

// discardDisplay swallows output. Delegated runs use it so sub-task
// narration stays off the terminal; progress surfaces through the task
// board instead.
type discardDisplay struct{}

func (discardDisplay) Chunk(string) {}
func (discardDisplay) Flush()       {}

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// StreamFilter drops <think> spans from streamed content chunk-wise. Text is
// held back only while it could still turn into an opening tag, so display
// lag never exceeds the tag width.
type StreamFilter struct {
	pending strings.Builder
	inThink bool
}

// NewStreamFilter creates a new stream filter.
func NewStreamFilter() *StreamFilter {
	return &StreamFilter{}
}

// Process returns the displayable part of chunk.
func (f *StreamFilter) Process(chunk string) string {
	var out strings.Builder

	for _, r := range chunk {
		if f.inThink {
			f.pending.WriteRune(r)
			if strings.HasSuffix(f.pending.String(), thinkClose) {
				f.inThink = false
				f.pending.Reset()
			}
			continue
		}

		f.pending.WriteRune(r)
		buf := f.pending.String()
		switch {
		case buf == thinkOpen:
			f.inThink = true
			f.pending.Reset()
		case strings.HasPrefix(thinkOpen, buf):
			// Could still become an opening tag, keep holding.
		case buf[0] == '<' && len(buf) < len(thinkOpen):
			// Unmatched '<' run, hold until it is clearly not a tag.
		default:
			out.WriteString(buf)
			f.pending.Reset()
		}
	}

	return out.String()
}

// Flush returns whatever is still held back at end of turn. A reasoning
// span the stream never closed is dropped, not shown.
func (f *StreamFilter) Flush() string {
	if f.inThink {
		f.pending.Reset()
		return ""
	}
	out := f.pending.String()
	f.pending.Reset()
	return out
}

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThink removes reasoning spans from a complete reply, including an
// unclosed leading span some models emit.
func stripThink(response string) string {
	cleaned := thinkBlockRe.ReplaceAllString(response, "")
	if idx := strings.Index(cleaned, thinkClose); idx != -1 {
		cleaned = cleaned[idx+len(thinkClose):]
	}
	return strings.TrimSpace(cleaned)
}
