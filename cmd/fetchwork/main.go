// Command fetchwork fetches a fixed batch of URLs under a chosen
// concurrency strategy and prints each page's size and load time. The
// same binary doubles as the process-pool worker via fetchwork.Init.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/marstrand/fetchwork"
)

var sites = []string{
	"https://go.dev/",
	"https://pkg.go.dev/",
	"https://github.com/",
	"https://stackoverflow.com/",
	"https://news.ycombinator.com/",
	"https://en.wikipedia.org/",
	"https://www.cloudflare.com/",
	"https://www.wikidata.org/",
}

// httpFetch is registered at package level so worker subprocesses can
// resolve it before Init runs.
var httpFetch = fetchwork.Register("http", fetchURL)

// fetchURL reports the size of a page and the time it took to load.
func fetchURL(ctx context.Context, url string) (int, time.Duration, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, 0, err
	}
	return int(n), time.Since(start), nil
}

func main() {
	if fetchwork.Init() {
		return
	}

	var (
		strategy = flag.String("strategy", "sequential", "sequential | processes | threads | coop")
		workers  = flag.Int("workers", 0, "pool size; 0 means one process per URL, or NumCPU threads")
		ordered  = flag.Bool("ordered", false, "process pool: aggregate in submission order")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall deadline")
		count    = flag.Int("count", 10, "run the shared-counter demo with this many threads instead")
		counter  = flag.Bool("counter", false, "run the shared-counter demo and exit")
	)
	flag.Parse()

	if *counter {
		fetchwork.NewSharedCounter(os.Stdout).Run(*count)
		return
	}

	var s fetchwork.Strategy
	switch *strategy {
	case "sequential":
		s = fetchwork.Sequential{}
	case "processes":
		s = fetchwork.ProcessPool{Workers: *workers, Ordered: *ordered}
	case "threads":
		s = fetchwork.ThreadPool{Workers: *workers}
	case "coop":
		s = fetchwork.Cooperative{}
	default:
		log.Fatalf("unknown strategy %q", *strategy)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	results, err := s.Run(ctx, sites, httpFetch)
	if err != nil {
		log.Fatal(err)
	}

	for url, res := range results.All() {
		fmt.Printf("%-40s %9d bytes  %v\n", url, res.Size, res.Elapsed)
	}
	fmt.Printf("%d sites in %v (%s)\n", results.Len(), time.Since(start), *strategy)
}
