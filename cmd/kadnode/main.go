// Command kadnode runs one Kademlia routing-table node: it listens for
// peers, bootstraps through any addresses given on the command line, and
// keeps its routing table warm until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kadnode/node"
)

func main() {
	listenAddr := flag.String("listen", "0.0.0.0:9000", "address to listen on")
	bootstrap := flag.String("bootstrap", "", "comma-separated list of bootstrap peer addresses")
	refresh := flag.Duration("refresh", node.DefaultRefreshInterval, "base interval between bootstrap/refresh cycles")
	flag.Parse()

	var peers []string
	if *bootstrap != "" {
		for _, p := range strings.Split(*bootstrap, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				peers = append(peers, p)
			}
		}
	}

	n, err := node.NewBuilder().
		Listen(*listenAddr).
		Bootstrap(peers).
		RefreshInterval(*refresh).
		Build()
	if err != nil {
		log.Fatalf("kadnode: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				for _, line := range n.ShowTable() {
					log.Println(line)
				}
				continue
			}
			cancel()
			return
		}
	}()

	if err := n.Start(ctx); err != nil {
		log.Printf("kadnode: stopped: %v", err)
	}

	// give in-flight goroutines a moment to unwind before exit.
	time.Sleep(100 * time.Millisecond)
}
