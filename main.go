package main

import "syncheal/cmd"

func main() {
	cmd.Execute()
}
