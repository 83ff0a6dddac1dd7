package main

import "github.com/lukman83/listing-miner/cmd"

func main() {
	cmd.Execute()
}
