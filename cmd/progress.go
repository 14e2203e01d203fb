package cmd

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// progressReporter returns a callback that draws a bar on w, created once
// the total is known.
func progressReporter(w io.Writer, description string) func(done, total int) {
	var bar *progressbar.ProgressBar

	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+description+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}
		_ = bar.Set(done)
	}
}
