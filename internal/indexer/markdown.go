package indexer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// extractMarkdown splits a Markdown or text file into one section per "#"
// heading of any level. Text before the first heading is titled after the
// file. Sections with no body are dropped.
func extractMarkdown(path string) ([]section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return splitSections(f.Name(), bufio.NewScanner(f))
}

func splitSections(name string, sc *bufio.Scanner) ([]section, error) {
	var (
		out   []section
		title = titleFromName(name)
		body  strings.Builder
		fence bool
	)
	flush := func() {
		if text := strings.TrimSpace(body.String()); text != "" {
			out = append(out, section{title: title, text: text})
		}
		body.Reset()
	}

	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			fence = !fence
		}
		if !fence && strings.HasPrefix(trimmed, "#") {
			if heading := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); heading != "" {
				flush()
				title = heading
				continue
			}
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return out, nil
}

// titleFromName turns "side-projects.md" into "Side projects".
func titleFromName(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return base
	}
	r, size := utf8.DecodeRuneInString(stem)
	return string(unicode.ToUpper(r)) + stem[size:]
}
