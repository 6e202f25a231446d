package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geezhu/clash-subscription-merge/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		os.Exit(130)
	}()

	if err := cli.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
