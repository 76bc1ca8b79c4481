package assets

import (
	"bufio"
	"embed"
	"io"
	"io/fs"
	"strings"
)

//go:embed symbols.txt sql/*.sql
var FS embed.FS

// ReadLines returns the non-blank, non-comment lines of r, trimmed.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// SymbolLines returns the lines of the embedded symbol set file.
func SymbolLines() ([]string, error) {
	f, err := FS.Open("symbols.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// Migrations exposes the embedded *.sql files at the root of the returned FS.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}
