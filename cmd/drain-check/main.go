// Package main - drain-check
// Executable to run the drain scenarios outside of go test.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/MRamiBalles/vitals/test"
)

func main() {
	quiet := flag.Bool("quiet", false, "Only print the summary")
	flag.Parse()

	fmt.Println("VITALS - DRAIN SCENARIO SUITE")
	fmt.Println(strings.Repeat("=", 48))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	suite := test.NewDrainScenarioTest(!*quiet)
	suite.RunTest(ctx)

	// Summary
	passed := 0
	failed := 0
	for _, r := range suite.GetResults() {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 48))
	fmt.Printf("   Passed: %d\n", passed)
	fmt.Printf("   Failed: %d\n", failed)

	if failed > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}
