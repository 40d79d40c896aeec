// Package main provides the entry point for bpsim.
// bpsim is a trace-driven perceptron branch predictor simulator built on Akita.
//
// The simulator lives in ./cmd/bpsim; run it with -h for its options.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("bpsim - Perceptron Branch Predictor Simulator")
	fmt.Println("")
	fmt.Println("Usage: go run ./cmd/bpsim [options] <trace[.gz]>")
	fmt.Println("       go run ./cmd/bpsim -h   for the option list")

	if len(os.Args) > 1 {
		os.Exit(2)
	}
}
