// assets/embed.go
//
// Embedded defaults for the game: the YAML config plus the stock symbol set
// and modal message pools (one entry per line, '#' starts a comment line).

package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed game.yaml symbols.txt win.txt lose.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// GameConfig returns the raw default game.yaml.
func GameConfig() ([]byte, error) {
	return FS.ReadFile("game.yaml")
}

func SymbolList() ([]string, error) {
	return readLines("symbols.txt")
}

func WinMessages() ([]string, error) {
	return readLines("win.txt")
}

func LoseMessages() ([]string, error) {
	return readLines("lose.txt")
}
