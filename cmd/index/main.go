// Command index builds the embedding index from the image collection and
// inspects past runs.
//
// Usage:
//
//	index build   [--config path] [--workers n]
//	index runs    [--limit n]
//	index inspect
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
