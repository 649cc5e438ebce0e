package main

import "dendrite/cmd/dendritectl/cmd"

func main() {
	cmd.Execute()
}
