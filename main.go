package main

import "github.com/forgecode/editengine/cmd"

func main() {
	cmd.Execute()
}
