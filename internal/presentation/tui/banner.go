package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for interactive sessions.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___     _ _                       ", "#818cf8"},
		{"  / __\\___| | | ___   __ _ _   _ _   _ ", "#a78bfa"},
		{" / /  / _ \\ | |/ _ \\ / _` | | | | | | |", "#c084fc"},
		{"/ /__| (_) | | | (_) | (_| | |_| | |_| |", "#e879f9"},
		{"\\____/\\___/|_|_|\\___/ \\__, |\\__,_|\\__, |", "#f472b6"},
		{"                         |_|      |___/ ", "#fb7185"},
	}

	fmt.Println()
	for _, line := range lines {
		fmt.Println(termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Println()
}
