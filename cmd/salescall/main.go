// Package main is the entry point of the salescall CLI.
//
// Usage:
//
//	salescall [flags] <command> [args]
//
// Commands:
//
//	serve    - Run the Twilio webhook server
//	call     - Place an outbound call to a lead
//	slots    - Print the next open meeting slots
//	console  - Talk to the agent in the terminal
//	schema   - Print the JSON schema of the company profile or leads file
package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/koscakluka/ema-sales/cmd/salescall/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
