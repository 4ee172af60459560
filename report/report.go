package report

import (
	"fmt"
	"io"

	"writebench/benchmark"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// DisplayResults shows the summary of benchmark performance
func DisplayResults(w io.Writer, summary *benchmark.Summary, logFileName string) {
	seconds := summary.Duration.Seconds()
	var throughput, fileThroughput float64
	if seconds > 0 {
		throughput = float64(summary.BytesWritten) / seconds / (1024 * 1024) // MiB/s
		fileThroughput = float64(summary.Succeeded) / seconds
	}

	fmt.Fprintln(w, "\nWRITE Results:")
	fmt.Fprintf(w, "Duration: %s\n", summary.Duration)
	fmt.Fprintf(w, "Files Written: %d/%d\n", summary.Succeeded, summary.Workers)
	fmt.Fprintf(w, "Data Written: %s (%d bytes)\n", humanize.IBytes(uint64(summary.BytesWritten)), summary.BytesWritten)
	fmt.Fprintf(w, "Data Throughput: %.2f MiB/s\n", throughput)
	fmt.Fprintf(w, "File Throughput: %.2f files/s\n", fileThroughput)
	if summary.Deleted > 0 {
		fmt.Fprintf(w, "Files Cleaned Up: %d\n", summary.Deleted)
	}

	if summary.Failed > 0 {
		color.New(color.FgRed).Fprintf(w, "Failed Tasks: %d (first error: %v)\n", summary.Failed, summary.FirstError)
		for _, res := range summary.Results {
			if res.State == benchmark.StateFailed {
				fmt.Fprintf(w, "  worker %d %s after %s: %v\n", res.Item.Index, res.Item.Path, res.Reached, res.Err)
			}
		}
	}
	if summary.VerifyFailed > 0 {
		color.New(color.FgRed).Fprintf(w, "Verify Failures: %d\n", summary.VerifyFailed)
	}

	if summary.Throttled > 0 {
		color.New(color.FgYellow).Fprintf(w, "API Throttled: %d tasks rejected, check %s for more details.\n", summary.Throttled, logFileName)
	} else {
		fmt.Fprintln(w, "No API throttling detected.")
	}
}
