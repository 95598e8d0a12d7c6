package main

import (
	"face-swap/internal"
	"face-swap/internal/pkg/service"
	"log"
)

func main() {

	action := "run-server"

	processAction(action)
}

func processAction(arg string) {
	log.Println("Processing action:", arg)

	service := service.NewService()

	switch arg {
	case "run-server":
		internal.RunServer(service)
	default:
		panic("invalid action")
	}
}
