package main

import "github.com/lexcodex/parley/app/cmd"

func main() {
	cmd.Execute()
}
