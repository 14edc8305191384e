package main

import "github.com/cpdo/zoning-tracker/cmd"

func main() {
	cmd.Execute()
}
