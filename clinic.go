package main

import "github.com/lungcare/clinic/api"

func main() {
	api.MainLoop()
}
