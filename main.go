// Command cacheproxy is a concurrent caching forward web proxy.
//
// Usage mirrors original_source/proxy.c's main(): a single positional
// argument, the TCP port to listen on.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arielsalem/cacheproxy/cache"
	"github.com/arielsalem/cacheproxy/conf"
	"github.com/arielsalem/cacheproxy/pkg/log"
	"github.com/arielsalem/cacheproxy/server"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <port>\n", os.Args[0])
		os.Exit(1)
	}

	bc := conf.New(":"+os.Args[1], os.Getenv("CACHEPROXY_LOG_PATH"))

	logger := log.New(bc.LogPath, os.Getenv("CACHEPROXY_VERBOSE") != "")
	defer logger.Sync() //nolint:errcheck

	sharedCache := cache.New(bc.MaxCacheSize, bc.MaxObjectSize)

	srv, err := server.New(bc, sharedCache, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	closed := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			logger.Warn("error during shutdown", zap.Error(err))
		}
		close(closed)
	}()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	<-closed
}
