package main

import (
	"log"

	"github.com/anoixa/image-store/cmd"
	"github.com/anoixa/image-store/config"
)

func main() {
	log.Printf("image store %s", config.VersionString())
	cmd.Execute()
}
