package main

import "github.com/kris-hansen/runa/cmd"

func main() {
	cmd.Execute()
}
