package mlog

import (
	"io"
	"strings"

	"github.com/dogmatiq/iago/must"
)

// Line is a single log line.
//
// It is rendered as the IDs, each followed by two spaces, then the icons,
// each followed by a single space, then the non-empty text segments joined by
// SeparatorIcon.
type Line struct {
	IDs   []IconWithLabel
	Icons []Icon
	Text  []string
}

func (l Line) String() string {
	b := &strings.Builder{}
	l.WriteTo(b) // nolint:errcheck
	return b.String()
}

// WriteTo writes the line to w.
func (l Line) WriteTo(w io.Writer) (_ int64, err error) {
	defer must.Recover(&err)

	n := 0

	for _, id := range l.IDs {
		n += must.WriteTo(w, id)
		n += must.WriteString(w, "  ")
	}

	for _, i := range l.Icons {
		n += must.WriteTo(w, i)
		n += must.WriteString(w, " ")
	}

	empty := true
	for _, t := range l.Text {
		if t == "" {
			continue
		}

		if !empty {
			n += must.WriteString(w, " ")
			n += must.WriteTo(w, SeparatorIcon)
		}

		n += must.WriteString(w, " ")
		n += must.WriteString(w, t)
		empty = false
	}

	return int64(n), nil
}

// String returns a log line as a string.
func String(ids []IconWithLabel, icons []Icon, text ...string) string {
	return Line{ids, icons, text}.String()
}

// Write writes a log line to w.
func Write(w io.Writer, ids []IconWithLabel, icons []Icon, text ...string) (int, error) {
	n, err := Line{ids, icons, text}.WriteTo(w)
	return int(n), err
}
