package main

import "github.com/forPelevin/montage/internal/cli"

func main() {
	cli.Main()
}
