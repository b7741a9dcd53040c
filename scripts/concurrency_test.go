//go:build ignore
// +build ignore

// Manual concurrency stress test for the borrow endpoint.
//
// Usage:
//
//	BOOK_ID=<uuid> TOKENS=<jwt1>,<jwt2>,... go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires one goroutine per token, all posting /api/borrow for the same
//     book simultaneously.
//  2. Tallies successes vs 409 OutOfStock responses.
//  3. With N tokens and K available copies, a correct ledger yields exactly
//     min(N, K) successes — the guarded decrement never over-grants.
//
// Prerequisites: server running, a book with some copies, one logged-in
// member token per goroutine.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Token      string
	StatusCode int
	Message    string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	tokensEnv := os.Getenv("TOKENS")
	if bookID == "" || tokensEnv == "" {
		log.Fatal("Usage: BOOK_ID=<uuid> TOKENS=<jwt1>,<jwt2>,... go run ./scripts/concurrency_test.go")
	}
	tokens := strings.Split(tokensEnv, ",")

	fmt.Printf("=== Borrow Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Book    : %s\n", bookID)
	fmt.Printf("Callers : %d\n\n", len(tokens))

	results := make([]borrowResult, len(tokens))
	var wg sync.WaitGroup

	// Barrier so every request leaves at the same instant.
	start := make(chan struct{})

	for i, token := range tokens {
		wg.Add(1)
		go func(idx int, tok string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, bookID, strings.TrimSpace(tok))
		}(i, token)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Print("All requests completed.\n\n")

	var borrowed, outOfStock, failures int
	for i, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] caller=%d err=%v\n", i, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrowed++
			fmt.Printf("  [BRRW] caller=%d status=%d\n", i, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			outOfStock++
			fmt.Printf("  [FULL] caller=%d status=%d msg=%s\n", i, r.StatusCode, r.Message)
		default:
			failures++
			fmt.Printf("  [FAIL] caller=%d status=%d msg=%s\n", i, r.StatusCode, r.Message)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrowed    : %d\n", borrowed)
	fmt.Printf("OutOfStock  : %d\n", outOfStock)
	fmt.Printf("Failures    : %d\n", failures)
	fmt.Printf("Total       : %d\n\n", len(tokens))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("The conditional UPDATE (available > 0) serializes borrows per book;")
	fmt.Printf("if Borrowed equals the copies that were available, the ledger held.\n")

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed — check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// attemptBorrow posts /api/borrow for the given bearer token and reads the
// response status and message.
func attemptBorrow(serverAddr, bookID, token string) borrowResult {
	url := fmt.Sprintf("%s/api/borrow", serverAddr)
	body := fmt.Sprintf(`{"bookId":"%s"}`, bookID)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return borrowResult{Token: token, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{Token: token, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	message, _ := parsed["message"].(string)
	if message == "" {
		message, _ = parsed["error"].(string)
	}
	return borrowResult{
		Token:      token,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
