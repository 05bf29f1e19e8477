// Benchmark harness: spins up a mock OpenAI-style backend and the proxy,
// then drives Ollama-dialect traffic through it with vegeta.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var (
	streamChunks = [][]byte{
		[]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Bench\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"mark\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\" response\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"),
		[]byte("data: [DONE]\n\n"),
	}
	unaryResp = []byte(`{"id":"bench-1","choices":[{"index":0,"message":{"role":"assistant","content":"Hello"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}}`)
)

const benchConfig = `
server:
  port: "8081"
  env: production
upstream:
  base_url: "http://localhost:9091/v1"
  api_key: "bench-key"
store:
  enabled: false
cache:
  enabled: true
  backend: memory
rate_limit:
  requests_per_second: 0
`

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	stream := flag.Bool("stream", false, "Use streaming requests")
	chat := flag.Bool("chat", false, "Attack /api/chat instead of /api/generate")
	flag.Parse()

	go startMockUpstream()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0o644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer func() { _ = os.Remove(configFile) }()

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), "CONFIG_FILE="+configFile)

	logFile, _ := os.Create("bench_server.log")
	defer func() { _ = logFile.Close() }()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	endpoint := "/api/generate"
	body := fmt.Sprintf(`{"model": "gpt-3.5-turbo", "prompt": "Hello", "stream": %t}`, *stream)
	if *chat {
		endpoint = "/api/chat"
		body = fmt.Sprintf(`{"model": "gpt-3.5-turbo", "stream": %t, "messages": [{"role": "user", "content": "Hello"}]}`, *stream)
	}

	mode := "unary"
	if *stream {
		mode = "streaming"
	}
	fmt.Printf("Running %s benchmark against %s: %s duration, %d req/s\n", mode, endpoint, *duration, *rate)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("http://localhost:%d%s", appPort, endpoint)
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type":      []string{"application/json"},
			"X-Benchmark-Start": []string{strconv.FormatInt(time.Now().UnixNano(), 10)},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Error set (first 5 unique):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if len(seen) >= 5 {
				break
			}
			if !seen[msg] {
				fmt.Println(msg)
				seen[msg] = true
			}
		}
	}
}

func startMockUpstream() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"data": [
				{"id": "gpt-3.5-turbo", "object": "model", "created": 1687882411, "owned_by": "openai"}
			]
		}`))
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if val, ok := req["stream"].(bool); ok && val {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher, _ := w.(http.Flusher)

			for _, chunk := range streamChunks {
				time.Sleep(20 * time.Millisecond)
				_, _ = w.Write(chunk)
				flusher.Flush()
			}
			return
		}

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}
