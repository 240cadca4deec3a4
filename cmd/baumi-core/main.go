package main

// @title           Baumi API
// @version         1.0
// @description     Knowledge base ingestion and streaming chat for the Baumi shop assistant.

// @contact.name   Baumi Labs

// @host      localhost:8080
// @BasePath  /
// @schemes   http https

import (
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
