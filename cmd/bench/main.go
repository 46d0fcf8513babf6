// bench exercises a running homepilot-backend: it enumerates the
// provider catalog and measures chat latency per provider.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ansi colors
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

type ProvidersResponse struct {
	OK        bool     `json:"ok"`
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	FunMode        bool   `json:"fun_mode"`
	Mode           string `json:"mode"`
	Provider       string `json:"provider"`
}

type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type BenchResult struct {
	Provider string
	Duration time.Duration
	Words    int
	Error    error
}

type ProviderStats struct {
	Provider    string
	Runs        int
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
	AvgWords    float64
	Errors      int
}

var (
	baseURL = flag.String("url", "http://localhost:8080", "API base URL")
	runs    = flag.Int("runs", 6, "number of runs per provider")
	prompt  = flag.String("prompt", "tell me a short story in 50 words", "test prompt")
	apiKey  = flag.String("key", "", "API key, if the server requires one")
)

var httpClient *http.Client

func init() {
	transport := &http.Transport{}

	// check ALL_PROXY env
	if proxy := os.Getenv("ALL_PROXY"); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	httpClient = &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func main() {
	flag.Parse()

	fmt.Printf("%shomepilot-bench%s\n", bold, reset)
	fmt.Printf("  url:  %s\n", *baseURL)
	fmt.Printf("  runs: %d\n", *runs)
	fmt.Println()

	providers, err := getProviders(*baseURL)
	if err != nil {
		fmt.Printf("%serror:%s %v\n", red, reset, err)
		return
	}

	fmt.Printf("found %d providers, running benchmarks...\n\n", len(providers))

	statsChan := make(chan ProviderStats, len(providers))
	var wg sync.WaitGroup

	for _, p := range providers {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			statsChan <- benchmarkProvider(*baseURL, name, *runs, *prompt)
		}(p)
	}

	go func() {
		wg.Wait()
		close(statsChan)
	}()

	allStats := make([]ProviderStats, 0, len(providers))
	for stats := range statsChan {
		allStats = append(allStats, stats)
	}

	printResults(allStats)
}

func getProviders(baseURL string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/providers", nil)
	if err != nil {
		return nil, err
	}
	setAuth(req)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var providersResp ProvidersResponse
	if err := json.NewDecoder(resp.Body).Decode(&providersResp); err != nil {
		return nil, err
	}
	return providersResp.Available, nil
}

func benchmarkProvider(baseURL, name string, runs int, prompt string) ProviderStats {
	var durations []time.Duration
	var words []int
	errors := 0

	// run requests sequentially
	for i := 0; i < runs; i++ {
		r := runSingleBench(baseURL, name, prompt, i)
		if r.Error != nil {
			errors++
			continue
		}
		durations = append(durations, r.Duration)
		words = append(words, r.Words)
	}

	stats := ProviderStats{
		Provider: name,
		Runs:     runs,
		Errors:   errors,
	}

	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

		var totalDur time.Duration
		var totalWords float64
		for i := range durations {
			totalDur += durations[i]
			totalWords += float64(words[i])
		}

		n := len(durations)
		stats.AvgDuration = totalDur / time.Duration(n)
		stats.MinDuration = durations[0]
		stats.MaxDuration = durations[n-1]
		stats.AvgWords = totalWords / float64(n)
	}

	return stats
}

func runSingleBench(baseURL, name, prompt string, run int) BenchResult {
	body, _ := json.Marshal(ChatRequest{
		Message:        prompt,
		ConversationID: fmt.Sprintf("bench-%s-%d", name, run),
		Mode:           "chat",
		Provider:       name,
	})

	req, err := http.NewRequest(http.MethodPost, baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return BenchResult{Provider: name, Error: err}
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req)

	start := time.Now()
	resp, err := httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		return BenchResult{Provider: name, Error: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return BenchResult{Provider: name, Error: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return BenchResult{Provider: name, Error: err}
	}

	return BenchResult{
		Provider: name,
		Duration: duration,
		Words:    len(strings.Fields(chatResp.Text)),
	}
}

func setAuth(req *http.Request) {
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}
}

func printResults(allStats []ProviderStats) {
	sort.Slice(allStats, func(i, j int) bool {
		return allStats[i].AvgDuration < allStats[j].AvgDuration
	})

	fmt.Printf("%s%-12s %10s %10s %10s %8s %7s%s\n",
		bold, "provider", "avg", "min", "max", "words", "errors", reset)

	for _, s := range allStats {
		color := green
		if s.Errors > 0 {
			color = yellow
		}
		if s.Errors == s.Runs {
			color = red
		}

		fmt.Printf("%s%-12s%s %10s %10s %10s %8.0f %7d\n",
			color, s.Provider, reset,
			round(s.AvgDuration), round(s.MinDuration), round(s.MaxDuration),
			s.AvgWords, s.Errors)
	}

	fmt.Printf("\n%sdone%s\n", cyan, reset)
}

func round(d time.Duration) time.Duration {
	return d.Round(10 * time.Millisecond)
}
