package main

import (
	"fmt"
	"os"

	"github.com/kjakx/jack-compiler/internal/diag"
	"github.com/kjakx/jack-compiler/internal/driver"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Expected one argument: source file or directory")
		os.Exit(2)
	}

	source := os.Args[1]

	log := diag.New(os.Stdout)
	driver.Run(source, log)

	os.Exit(log.ExitCode())
}
