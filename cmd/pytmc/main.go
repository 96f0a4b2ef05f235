package main

import "github.com/pcdshub/pytmc/internal/cli"

func main() {
	cli.Execute()
}
