package main

import "facematch/internal/cli"

func main() {
	cli.Execute()
}
