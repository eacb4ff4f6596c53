package main

import "github.com/x4tools/projector/cmd"

func main() {
	cmd.Execute()
}
