package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   ____ ___     _           `, "#818cf8"},
	{`  / ___|_ _| __| | ___ _ __ `, "#a78bfa"},
	{` | |    | | / _' |/ _ \ '__|`, "#c084fc"},
	{` | |___ | || (_| |  __/ |   `, "#e879f9"},
	{`  \____|___\__,_|\___|_|    `, "#f472b6"},
}

// PrintBanner outputs the CIder banner on stdout.
func PrintBanner(version string) {
	FprintBanner(os.Stdout, version)
}

// FprintBanner writes the banner to w, coloured when w supports it.
func FprintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  "+v).Faint())
	}
	fmt.Fprintln(w)
}
