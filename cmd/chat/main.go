// Command chat runs the personality assessment dialogue in a terminal
// against the inference API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	configs "github.com/personality-predictor/backend/config"
	"github.com/personality-predictor/backend/pkg/circuit"
	"github.com/personality-predictor/backend/pkg/inference"
	"github.com/personality-predictor/backend/pkg/pool"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	baseURL := flag.String("api", config.Inference.BaseURL, "inference API base URL")
	timeout := flag.Duration("timeout", config.Inference.Timeout, "per-request timeout")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connPool := pool.NewConnectionPool(pool.DefaultPoolConfig(), nil)
	defer connPool.Close()

	client := inference.NewClient(
		inference.Config{BaseURL: *baseURL, MaxRetries: config.Inference.MaxRetries},
		connPool.GetHTTPClient(inference.UpstreamName, *timeout),
		circuit.NewBreaker(inference.UpstreamName, circuit.DefaultConfig(), nil),
		connPool,
	)

	if err := run(ctx, inference.NewSession(client), os.Stdin, *timeout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, session *inference.Session, in *os.File, timeout time.Duration) error {
	printReply(session.Greeting())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		input := scanner.Text()
		if cmd := strings.TrimSpace(input); cmd == "/quit" || cmd == "/exit" {
			return nil
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		replies, err := session.Handle(reqCtx, input)
		cancel()
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			fmt.Println("Sorry, something went wrong:", err)
			fmt.Println("Send your last message again to retry.")
			continue
		}

		for _, reply := range replies {
			printReply(reply)
		}
	}
}

func printReply(reply inference.Reply) {
	if reply.PersonalityType != "" {
		fmt.Printf("\n== %s ==\n", reply.PersonalityType)
	}
	fmt.Println(reply.Text)
}
