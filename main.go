package main

import "wpback/cmd"

func main() {
	cmd.Execute()
}
