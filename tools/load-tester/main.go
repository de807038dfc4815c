package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	apiKey := flag.String("api-key", "", "Tenant API key")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	writeEvery := flag.Int("write-every", 10, "Create a menu item on every n-th request, reads otherwise")
	flag.Parse()

	if *apiKey == "" {
		log.Fatal("-api-key is required")
	}

	log.Printf("Starting load test on %s", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var reads, writes, errorCount, seq atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				var req *http.Request
				var err error
				isWrite := *writeEvery > 0 && seq.Add(1)%int64(*writeEvery) == 0
				if isWrite {
					body, _ := json.Marshal(map[string]any{
						"itemName": "load-" + uuid.NewString(),
						"Category": "load-test",
						"MRP":      99.5,
					})
					req, err = http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+"/menu", bytes.NewReader(body))
				} else {
					req, err = http.NewRequestWithContext(ctx, http.MethodGet, *baseURL+"/menu", nil)
				}
				if err != nil {
					continue
				}
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-API-Key", *apiKey)

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errorCount.Add(1)
					continue
				}
				resp.Body.Close()

				switch {
				case isWrite && resp.StatusCode == http.StatusCreated:
					writes.Add(1)
				case !isWrite && resp.StatusCode == http.StatusOK:
					reads.Add(1)
				default:
					errorCount.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	total := reads.Load() + writes.Load() + errorCount.Load()
	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", total)
	log.Printf("Reads (200): %d", reads.Load())
	log.Printf("Writes (201): %d", writes.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", float64(total)/duration.Seconds())
}
