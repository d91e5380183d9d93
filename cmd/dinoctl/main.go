// Package main is the entry point for the dinoctl CLI.
package main

import "github.com/Sternrassler/dino-catalog/internal/cli"

func main() {
	cli.Execute()
}
