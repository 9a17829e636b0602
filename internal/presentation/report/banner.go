package report

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`      _        _                             _ `, "#818cf8"},
	{`  ___| |_ __ _| |_ ___  __ _ _  _ __ _ _ _ __| |`, "#a78bfa"},
	{` (_-<  _/ _' |  _/ -_)/ _' | || / _' | '_/ _' |`, "#c084fc"},
	{` /__/\__\__,_|\__\___|\__, |\_,_\__,_|_| \__,_|`, "#e879f9"},
	{`                      |___/                    `, "#f472b6"},
}

// PrintBanner writes the stateguard banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
