package progress

import (
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/minio/pkg/console"
)

// ProgressBar wrapper structure
type ProgressBar struct {
	*pb.ProgressBar
}

// NewProgressBar - instantiate a byte progress bar for total bytes.
func NewProgressBar(total int64) *ProgressBar {
	// Progress bar specific theme customization.
	console.SetColor("Bar", color.New(color.FgGreen, color.Bold))

	bar := pb.New64(total)
	bar.Set(pb.Bytes, true)
	bar.SetRefreshRate(time.Millisecond * 125)
	bar.SetTemplateString(`{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`)
	bar.Start()

	return &ProgressBar{ProgressBar: bar}
}

// SetCaption sets the caption of the progress bar.
func (p *ProgressBar) SetCaption(caption string) *ProgressBar {
	p.ProgressBar.Set("prefix", caption)
	return p
}

// AddBytes advances the bar. It is safe for concurrent use.
func (p *ProgressBar) AddBytes(n int64) {
	p.ProgressBar.Add64(n)
}
