package main

import "github.com/porcini-dev/porcini/cmd"

func main() {
	cmd.Execute()
}
