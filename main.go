// Package main provides the entry point for psxcore.
// Psxcore is an R3000A CPU and GTE emulation core built on Akita.
//
// For the full CLI, use: go run ./cmd/psxcore
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("psxcore - R3000A CPU and GTE emulation core")
	fmt.Println("")
	fmt.Println("Usage: psxcore [options] <program.exe>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -steps     Maximum number of instructions to execute")
	fmt.Println("  -timing    Enable cycle cost accounting")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -icache    Collect instruction cache statistics")
	fmt.Println("  -snapshot  Write a state snapshot on exit")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/psxcore' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/psxcore' instead.")
	}
}
