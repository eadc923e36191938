package main

import "github.com/foxhunt/disdrop/internal/cmd"

func main() {
	cmd.Execute()
}
