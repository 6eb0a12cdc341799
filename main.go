package main

import "github.com/kanal-io/kanal/cmd"

func main() {
	cmd.Execute()
}
