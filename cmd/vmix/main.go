// Command vmix inspects session documents and runs the mixer in a window.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vmix:", err)
		os.Exit(1)
	}
}
