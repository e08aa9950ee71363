//go:build load
// +build load

package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"github.com/venuely/editor-bridge/internal/protocol"
)

var (
	addr     = flag.String("addr", "http://localhost:8085", "Bridge base URL")
	requests = flag.Int("requests", 500, "Total number of session lifecycles")
	workers  = flag.Int("workers", 10, "Number of concurrent workers")
	profile  = flag.String("profile", "event", "Profile for created sessions")
)

type result struct {
	duration time.Duration
	err      error
}

func main() {
	flag.Parse()

	log.Printf("Starting editor bridge load test")
	log.Printf("Target: %s", *addr)
	log.Printf("Sessions: %d", *requests)
	log.Printf("Workers: %d", *workers)

	client := resty.New().
		SetBaseURL(*addr).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")

	results := runLoadTest(client, *requests, *workers)

	analyzeResults(results)
}

// runLoadTest drives workers through full session lifecycles: create
// over REST, attach over WebSocket, wait for the seed replace, close.
func runLoadTest(client *resty.Client, totalRequests, workers int) []result {
	results := make([]result, 0, totalRequests)
	var mu sync.Mutex

	var completed atomic.Int32
	start := time.Now()

	var wg sync.WaitGroup
	requestsChan := make(chan int, totalRequests)

	for i := 0; i < totalRequests; i++ {
		requestsChan <- i
	}
	close(requestsChan)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for range requestsChan {
				res := executeLifecycle(client)

				mu.Lock()
				results = append(results, res)
				mu.Unlock()

				count := completed.Add(1)
				if count%100 == 0 {
					elapsed := time.Since(start)
					rps := float64(count) / elapsed.Seconds()
					log.Printf("Progress: %d/%d sessions (%.2f sessions/sec)",
						count, totalRequests, rps)
				}
			}
		}(w)
	}

	wg.Wait()

	return results
}

func executeLifecycle(client *resty.Client) result {
	start := time.Now()

	var sess struct {
		ID string `json:"id"`
	}
	resp, err := client.R().
		SetBody(map[string]string{
			"profile_id": *profile,
			"content":    "<p>Load probe</p>",
		}).
		SetResult(&sess).
		Post("/editors")
	if err != nil {
		return result{duration: time.Since(start), err: err}
	}
	if resp.StatusCode() != 201 {
		return result{duration: time.Since(start), err: fmt.Errorf("create: status %d", resp.StatusCode())}
	}

	if err := attachAndSeed(sess.ID); err != nil {
		return result{duration: time.Since(start), err: err}
	}

	if _, err := client.R().Delete("/editors/" + sess.ID); err != nil {
		return result{duration: time.Since(start), err: err}
	}

	return result{duration: time.Since(start)}
}

// attachAndSeed dials the attachment endpoint, reports ready, and waits
// for the seed replace. This covers the whole path a real surface takes
// before the first keystroke.
func attachAndSeed(sessionID string) error {
	wsURL := "ws" + strings.TrimPrefix(*addr, "http") + "/editors/" + sessionID + "/attach"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	raw, err := protocol.Encode(protocol.Ready())
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("ready: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		return err
	}
	if msg.Type != protocol.TypeReplace {
		return fmt.Errorf("seed: unexpected %s message", msg.Type)
	}
	return nil
}

func analyzeResults(results []result) {
	if len(results) == 0 {
		log.Println("No results to analyze")
		return
	}

	var (
		totalDuration time.Duration
		successCount  int
		errorCount    int
		durations     []time.Duration
	)

	for _, r := range results {
		totalDuration += r.duration
		if r.err == nil {
			successCount++
		} else {
			errorCount++
		}
		durations = append(durations, r.duration)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	total := len(results)
	avgDuration := totalDuration / time.Duration(total)
	p50 := durations[total*50/100]
	p95 := durations[total*95/100]
	p99 := durations[total*99/100]
	maxDuration := durations[total-1]

	fmt.Println("\n========================================")
	fmt.Println("Load Test Results")
	fmt.Println("========================================")
	fmt.Printf("Total Sessions:    %d\n", total)
	fmt.Printf("Successful:        %d (%.2f%%)\n", successCount, float64(successCount)/float64(total)*100)
	fmt.Printf("Failed:            %d (%.2f%%)\n", errorCount, float64(errorCount)/float64(total)*100)
	fmt.Println("----------------------------------------")
	fmt.Printf("Average Latency:   %v\n", avgDuration)
	fmt.Printf("P50 Latency:       %v\n", p50)
	fmt.Printf("P95 Latency:       %v\n", p95)
	fmt.Printf("P99 Latency:       %v\n", p99)
	fmt.Printf("Max Latency:       %v\n", maxDuration)
	fmt.Println("========================================")
}
