package main

import "timely/internal/cli"

func main() {
	cli.Execute()
}
