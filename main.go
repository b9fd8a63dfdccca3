package main

import "jamalekbot/cmd"

func main() {
	cmd.Execute()
}
