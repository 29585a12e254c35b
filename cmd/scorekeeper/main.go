package main

import "github.com/hoopstat/scorekeeper/internal/cli"

func main() {
	cli.Execute()
}
