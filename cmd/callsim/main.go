package main

import "github.com/ethanbaker/callsim/internal/cli"

func main() {
	cli.Execute()
}
