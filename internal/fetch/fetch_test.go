package fetch

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testPolicy(retries int) Policy {
	return Policy{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxJitter:    0,
		Rand:         rand.New(rand.NewSource(1)),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Retry(context.Background(), testPolicy(3), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryExhaustsSchedule(t *testing.T) {
	t.Parallel()

	want := errors.New("always failing")
	attempts := 0
	err := Retry(context.Background(), testPolicy(2), func() error {
		attempts++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected last error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected initial attempt plus 2 retries, got %d", attempts)
	}
}

func TestRetrySharedPolicyConcurrency(t *testing.T) {
	t.Parallel()

	// One policy with a nil Rand is shared by every client; overlapping
	// requests must be able to draw jitter from it concurrently.
	policy := DefaultPolicy(nil)
	policy.InitialDelay = time.Millisecond
	policy.MaxJitter = time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempts := 0
			err := Retry(context.Background(), policy, func() error {
				attempts++
				if attempts <= policy.MaxRetries {
					return errors.New("transient")
				}
				return nil
			})
			if err != nil {
				t.Errorf("Retry returned error: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestRetryHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, testPolicy(3), func() error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	client := NewClient(testPolicy(3), time.Second, nil, nil)
	body, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body: %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 requests, got %d", calls.Load())
	}
}

func TestClientGetReturnsLastError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testPolicy(1), time.Second, nil, nil)
	if _, err := client.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestClientGetSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := NewClient(testPolicy(0), time.Second, nil, nil)
	if _, err := client.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if agent != defaultUserAgent {
		t.Fatalf("expected browser user agent, got %q", agent)
	}
}
