package main

import "github.com/lungcare/clinic/cmd/alerts/command"

func main() {
	command.Execute()
}
