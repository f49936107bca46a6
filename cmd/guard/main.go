package main

import "github.com/fencio-dev/guard-sub000/cmd/guard/cmd"

func main() {
	cmd.Execute()
}
