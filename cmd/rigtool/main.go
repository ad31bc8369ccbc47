// Command rigtool inspects, validates and evaluates rig definition files.
//
// Usage:
//
//	rigtool inspect rig.yaml
//	rigtool validate rig.yaml
//	rigtool eval rig.yaml --set Bone:root=10,0,0
//	rigtool dump rig.yaml > canonical.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rigtool:", err)
		os.Exit(1)
	}
}
