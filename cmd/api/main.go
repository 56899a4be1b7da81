// Command api is the AIJay API function. It runs under the Lambda runtime,
// or serves GET /ping locally when AIJAY_LOCAL_ADDR is set.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/anirudhbiyani/aijay/internal/logger"
	"github.com/anirudhbiyani/aijay/pkg/ping"
)

// EnvLocalAddr switches the binary to a local HTTP server on the given address.
const EnvLocalAddr = "AIJAY_LOCAL_ADDR"

func main() {
	h := ping.New()

	addr := os.Getenv(EnvLocalAddr)
	if addr == "" {
		lambda.Start(h.Handle)
		return
	}

	log := logger.FromEnv(os.Stderr)
	if err := serveLocal(addr, h); err != nil {
		log.Error("local server failed", "err", err)
		os.Exit(1)
	}
}

func serveLocal(addr string, h *ping.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ping.Serve(ctx, addr, h, logger.Default())
}
