package main

import "github.com/kardiff/pses/cmd"

func main() {
	cmd.Execute()
}
