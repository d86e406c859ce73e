package main

import "kinesis/internal/cli"

func main() {
	cli.Execute()
}
