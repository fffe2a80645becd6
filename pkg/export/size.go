package export

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"podscribe/pkg/httpclient"
	"podscribe/pkg/worker"
)

// DefaultProbeWorkers is how many HEAD requests run at once.
const DefaultProbeWorkers = 8

// SizeEstimator sums the Content-Length of download URLs.
type SizeEstimator struct {
	client  *httpclient.HTTPClient
	workers int
	log     *zap.SugaredLogger

	// Progress, when non-nil, receives a progress bar counting probed URLs.
	Progress io.Writer
}

// NewSizeEstimator creates a SizeEstimator. A nil client uses the default profile.
func NewSizeEstimator(client *httpclient.HTTPClient, workers int, logger *zap.SugaredLogger) *SizeEstimator {
	if client == nil {
		client = httpclient.NewClient(httpclient.DefaultClient)
	}
	if workers <= 0 {
		workers = DefaultProbeWorkers
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SizeEstimator{client: client, workers: workers, log: logger}
}

// TotalSize issues a HEAD request per URL, following redirects, and returns the summed
// Content-Length in bytes of whatever final response arrives, whatever its status. A response
// without Content-Length counts as zero; URLs whose request fails are logged and left out of
// the total.
func (e *SizeEstimator) TotalSize(ctx context.Context, urls []string) (uint64, error) {
	var total atomic.Uint64

	m := worker.NewManager(e.workers, e.log)
	if e.Progress != nil {
		bar := progressbar.NewOptions(len(urls),
			progressbar.OptionSetWriter(e.Progress),
			progressbar.OptionSetDescription("Probing sizes"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		m.OnResult = func(string, error) { _ = bar.Add(1) }
	}

	_, err := m.ProcessURLs(ctx, urls, func(ctx context.Context, url string) error {
		resp, err := e.client.Head(ctx, url)
		if err != nil {
			return err
		}
		defer httpclient.DrainAndClose(resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			e.log.Debugf("HEAD %s answered %d, counting its Content-Length anyway", url, resp.StatusCode)
		}
		if resp.ContentLength > 0 {
			total.Add(uint64(resp.ContentLength))
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return total.Load(), err
	}
	// Every URL failing still yields a (zero) estimate; the failures were logged.
	return total.Load(), nil
}

// FormatGB renders a byte count in binary gigabytes with two decimals.
func FormatGB(bytes uint64) string {
	return fmt.Sprintf("%.2f GB", float64(bytes)/(1<<30))
}

// FormatBytes renders a byte count for humans, e.g. "1.2 GB" (SI units).
func FormatBytes(bytes uint64) string {
	return humanize.Bytes(bytes)
}
