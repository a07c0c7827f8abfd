package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/JonMunkholm/labelbook/internal/core"
)

// progressView renders run progress as one bar per sheet group.
type progressView struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
	bar   *progressbar.ProgressBar
	key   string
}

func newProgressView(w io.Writer, quiet bool) *progressView {
	return &progressView{w: w, quiet: quiet}
}

// Update is a core.ProgressFunc.
func (v *progressView) Update(p core.Progress) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.quiet {
		return
	}

	switch p.Phase {
	case core.PhaseComplete, core.PhaseFailed, core.PhaseCancelled:
		v.finish()
		if p.Error != "" {
			fmt.Fprintf(v.w, "%s: %s\n", p.Phase, p.Error)
		} else if p.Status != "" {
			fmt.Fprintln(v.w, p.Status)
		}
		return
	}

	if p.Total <= 0 || p.Group == "" {
		v.finish()
		if p.Status != "" {
			fmt.Fprintf(v.w, "%s...\n", p.Status)
		}
		return
	}

	key := string(p.Phase) + "/" + p.Group
	if key != v.key {
		v.finish()
		v.key = key
		v.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(v.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%-20s[reset]", p.Group)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}
	_ = v.bar.Set(p.Processed)
}

func (v *progressView) finish() {
	if v.bar == nil {
		return
	}
	_ = v.bar.Finish()
	fmt.Fprintln(v.w)
	v.bar = nil
	v.key = ""
}
