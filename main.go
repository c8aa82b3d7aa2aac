package main

import "github.com/akyaiy/rdata-node/cmd"

func main() {
	cmd.Execute()
}
