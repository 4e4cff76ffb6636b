// Command opcheck runs the operator-conformance suite against the in-process
// fusion scripting interface and reports per-combination results.
package main

import (
	"os"

	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
