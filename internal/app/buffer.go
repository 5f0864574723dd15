package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/code-mirror/mirror/internal/session"
)

// Buffer is a named piece of text to open in the editor.
type Buffer struct {
	Name string
	Path string
	Text string
}

// LoadBuffers reads each path into a Buffer. With no paths it returns a
// single empty scratch buffer.
func LoadBuffers(paths []string) ([]Buffer, error) {
	if len(paths) == 0 {
		return []Buffer{{Name: "scratch"}}, nil
	}
	bufs := make([]Buffer, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		bufs = append(bufs, Buffer{Name: filepath.Base(p), Path: p, Text: string(data)})
	}
	return bufs, nil
}

type view struct {
	name string
	area textarea.Model
}

func newView(b Buffer) view {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetValue(b.Text)
	return view{name: b.Name, area: ta}
}

// selection returns the cursor as a zero-length selection.
func (v view) selection() session.Selection {
	li := v.area.LineInfo()
	col := li.StartColumn + li.ColumnOffset
	return session.Selection{Offset: cursorOffset(v.area.Value(), v.area.Line(), col)}
}

// cursorOffset converts a row and rune column into a rune offset into text.
// Out-of-range positions are clamped to the end of the row or text.
func cursorOffset(text string, row, col int) uint {
	lines := strings.Split(text, "\n")
	if row >= len(lines) {
		return uint(len([]rune(text)))
	}
	off := 0
	for _, l := range lines[:row] {
		off += len([]rune(l)) + 1
	}
	col = max(col, 0)
	off += min(col, len([]rune(lines[row])))
	return uint(off)
}
