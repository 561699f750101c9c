package main

import "github.com/saravenpi/slash/cmd"

func main() {
	cmd.Execute()
}
