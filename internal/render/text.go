package render

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// WriteText prints a view for a plain terminal. Review marks are [v] for the
// correct option and [x] for a wrong selection.
func WriteText(w io.Writer, v QuestionView) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Soal %d dari %d\n\n", v.Number, v.Total)
	b.WriteString(PlainText(v.Text))
	b.WriteString("\n")
	if v.ImageURL != "" {
		fmt.Fprintf(&b, "[gambar: %s]\n", v.ImageURL)
	}
	b.WriteString("\n")

	for _, opt := range v.Options {
		b.WriteString(optionMarker(v.Mode, opt))
		fmt.Fprintf(&b, " %s. %s\n", opt.Label, PlainText(opt.Text))
	}

	if v.Mode == ModeReview {
		b.WriteString("\n")
		if !v.Answered {
			b.WriteString("Tidak dijawab.\n")
		}
		if v.Explanation != "" {
			b.WriteString("Pembahasan: ")
			b.WriteString(PlainText(v.Explanation))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func optionMarker(mode Mode, opt OptionView) string {
	if mode == ModeReview {
		switch {
		case opt.Correct:
			return "[v]"
		case opt.Incorrect:
			return "[x]"
		}
		return "[ ]"
	}
	if opt.Selected {
		return "(*)"
	}
	return "( )"
}

// PlainText flattens an HTML fragment to text. Block elements become line
// breaks and whitespace runs collapse to one space.
func PlainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li", "tr":
				b.WriteString("\n")
			}
		}
	}
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
