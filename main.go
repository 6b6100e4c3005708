package main

import "github.com/optionhouse/optionhouse/cmd"

func main() {
	cmd.Execute()
}
