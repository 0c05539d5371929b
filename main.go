package main

import "github.com/sw33tLie/wphttp/cmd"

func main() {
	cmd.Execute()
}
