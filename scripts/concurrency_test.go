//go:build ignore
// +build ignore

// Package main fires concurrent checkouts of one book against a running
// server.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <token1> [token2 ...]
//
// Or with environment variables:
//
//	BOOK_ID=<uuid>  TOKENS=<jwt1>,<jwt2>,...  go run ./scripts/concurrency_test.go
//
// Every token must belong to a different user. The script releases all
// requests at once, tallies 200 against 409 answers and then reads the book
// to check that the successes match the copies that were taken.
package main

import (
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

const defaultServerURL = "http://localhost:8080"

type checkoutResult struct {
	Token      string
	StatusCode int
	Code       string
	Err        error
}

type book struct {
	Copies          int `json:"copies"`
	CopiesAvailable int `json:"copiesAvailable"`
}

func main() {
	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = defaultServerURL
	}

	bookID := os.Getenv("BOOK_ID")
	var tokens []string
	if env := os.Getenv("TOKENS"); env != "" {
		tokens = strings.Split(env, ",")
	}
	if args := os.Args[1:]; len(args) >= 1 {
		bookID = args[0]
		if len(args) >= 2 {
			tokens = args[1:]
		}
	}
	if bookID == "" || len(tokens) == 0 {
		log.Fatal("usage: BOOK_ID=<uuid> TOKENS=<jwt1,jwt2,...> go run ./scripts/concurrency_test.go\n" +
			"   or: go run ./scripts/concurrency_test.go <book_id> <jwt1> [jwt2 ...]")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	before, err := fetchBook(client, serverURL, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}

	fmt.Printf("=== Concurrent checkout ===\n")
	fmt.Printf("Server    : %s\n", serverURL)
	fmt.Printf("Book      : %s (%d of %d available)\n", bookID, before.CopiesAvailable, before.Copies)
	fmt.Printf("Requests  : %d\n\n", len(tokens))

	results := make([]checkoutResult, len(tokens))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			<-start
			results[i] = attemptCheckout(client, serverURL, bookID, strings.TrimSpace(token))
		}(i, token)
	}
	close(start)
	wg.Wait()

	var ok, conflict, failed int
	for i, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Printf("  [ERR ] #%-3d err=%v\n", i, r.Err)
		case r.StatusCode == http.StatusOK:
			ok++
			fmt.Printf("  [ OK ] #%-3d\n", i)
		case r.StatusCode == http.StatusConflict:
			conflict++
			fmt.Printf("  [409 ] #%-3d code=%s\n", i, r.Code)
		default:
			failed++
			fmt.Printf("  [FAIL] #%-3d status=%d code=%s\n", i, r.StatusCode, r.Code)
		}
	}

	after, err := fetchBook(client, serverURL, bookID)
	if err != nil {
		log.Fatalf("read book: %v", err)
	}
	taken := before.CopiesAvailable - after.CopiesAvailable

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Checked out : %d\n", ok)
	fmt.Printf("Conflicts   : %d\n", conflict)
	fmt.Printf("Failures    : %d\n", failed)
	fmt.Printf("Copies taken: %d\n", taken)

	switch {
	case ok > before.CopiesAvailable:
		fmt.Printf("\n[BROKEN] %d checkouts succeeded with only %d copies available\n", ok, before.CopiesAvailable)
		os.Exit(2)
	case ok != taken:
		fmt.Printf("\n[BROKEN] %d checkouts succeeded but available copies dropped by %d\n", ok, taken)
		os.Exit(2)
	case failed > 0:
		fmt.Printf("\n[WARNING] %d request(s) failed, check the server logs\n", failed)
		os.Exit(1)
	}
}

func attemptCheckout(client *http.Client, serverURL, bookID, token string) checkoutResult {
	url := fmt.Sprintf("%s/api/books/secure/checkout?bookId=%s", serverURL, bookID)
	req, err := http.NewRequest(http.MethodPut, url, nil)
	if err != nil {
		return checkoutResult{Token: token, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return checkoutResult{Token: token, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(raw, &body)
	return checkoutResult{Token: token, StatusCode: resp.StatusCode, Code: body.Code}
}

func fetchBook(client *http.Client, serverURL, bookID string) (book, error) {
	var b book
	resp, err := client.Get(fmt.Sprintf("%s/api/books/%s", serverURL, bookID))
	if err != nil {
		return b, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return b, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	err = json.NewDecoder(resp.Body).Decode(&b)
	return b, err
}
