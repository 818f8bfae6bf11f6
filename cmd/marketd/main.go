package main

import "github.com/zrcswap/zrcswap/cmd/marketd/cmd"

func main() {
	cmd.Execute()
}
