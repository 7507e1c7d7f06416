package main

import "github.com/RyanBlaney/sonido-tuner/cmd"

func main() {
	cmd.Execute()
}
