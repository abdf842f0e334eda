package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"order_video/internal/shopify"
)

// Result is the outcome of one HTTP request.
type Result struct {
	Status int
	Body   string
	Err    error
}

var prices = []string{"10.00", "75.00", "250.00"}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	orderID := flag.String("order", "900", "order id used for every delivery")
	phone := flag.String("phone", "5551234567", "customer phone")
	secret := flag.String("secret", "", "SHOPIFY_API_SECRET of the server; empty sends unsigned webhooks")

	// same order redelivered concurrently with varying prices
	deliveries := flag.Int("deliveries", 100, "webhook deliveries")
	scans := flag.Int("scans", 200, "scan requests")
	concurrency := flag.Int("c", 50, "max concurrency")
	flag.Parse()

	client := &http.Client{
		Timeout: 5 * time.Second,
		// 302 is the expected scan answer; do not follow it
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	// 1) concurrent upserts on one key: exactly one row, holding one of the tier URLs
	fmt.Printf("start webhook test: order=%s deliveries=%d concurrency=%d\n", *orderID, *deliveries, *concurrency)
	results := fanOut(*deliveries, *concurrency, func(i int) Result {
		body := fmt.Sprintf(`{"id":%q,"total_price":%q,"customer":{"phone":%q}}`, *orderID, prices[i%len(prices)], *phone)
		return postWebhook(client, *baseURL+"/webhook/orders/create", body, *secret)
	})
	printSummary("webhook", results)

	videoURL, err := getVideoURL(client, *baseURL, *orderID)
	if err != nil {
		fmt.Println("video check err:", err)
	} else {
		fmt.Println("final video_url:", videoURL)
	}

	// 2) scans; with Redis configured the rate limiter should start answering 429
	tag := *orderID + "-" + *phone
	fmt.Printf("\nstart scan test: tag=%s scans=%d concurrency=%d\n", tag, *scans, *concurrency)
	results = fanOut(*scans, *concurrency, func(int) Result {
		return get(client, *baseURL+"/qr/"+tag)
	})
	printSummary("scan", results)

	// scan events may still be in flight through the outbox
	time.Sleep(2 * time.Second)
	r := get(client, fmt.Sprintf("%s/api/orders/%s/scans", *baseURL, *orderID))
	if r.Err != nil {
		fmt.Println("scan stats err:", r.Err)
		return
	}
	fmt.Printf("scan stats: status=%d body=%s\n", r.Status, r.Body)
}

func fanOut(total, concurrency int, fn func(i int) Result) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = fn(idx)
		}(i)
	}

	wg.Wait()
	return results
}

func postWebhook(client *http.Client, url, body, secret string) Result {
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shopify.HeaderTopic, "orders/create")
	if secret != "" {
		req.Header.Set(shopify.HeaderHmac, base64.StdEncoding.EncodeToString(shopify.Sign([]byte(body), secret)))
	}
	return do(client, req)
}

func get(client *http.Client, url string) Result {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	return do(client, req)
}

func do(client *http.Client, req *http.Request) Result {
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

// printSummary prints the distribution of status codes.
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	codes := make([]int, 0, len(count))
	for code := range count {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, count[code])
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}

// getVideoURL reads the stored URL and checks it is one of the tier assets.
func getVideoURL(client *http.Client, baseURL, orderID string) (string, error) {
	r := get(client, fmt.Sprintf("%s/api/orders/%s", baseURL, orderID))
	if r.Err != nil {
		return "", r.Err
	}
	if r.Status >= 300 {
		return "", fmt.Errorf("status=%d body=%s", r.Status, r.Body)
	}
	var out struct {
		VideoURL string `json:"video_url"`
	}
	if err := json.Unmarshal([]byte(r.Body), &out); err != nil {
		return "", err
	}
	for _, tier := range []string{"/small.mp4", "/medium.mp4", "/large.mp4"} {
		if strings.HasSuffix(out.VideoURL, tier) {
			return out.VideoURL, nil
		}
	}
	return "", fmt.Errorf("unexpected video_url %q", out.VideoURL)
}
