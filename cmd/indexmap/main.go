/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/suparena/transientspace"
	"github.com/suparena/transientspace/processor"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	inputFlag   = flag.String("input", "", "OpenAPI document to read")
	outputFlag  = flag.String("output", "", "Go file to write (default stdout)")
	packageFlag = flag.String("package", "models", "Package name of the generated file")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		fmt.Printf("transientspace indexmap version %s\n", transientspace.GetVersionInfo())
		os.Exit(0)
	}

	if err := run(*inputFlag, *outputFlag, *packageFlag); err != nil {
		fmt.Fprintf(os.Stderr, "indexmap: %v\n", err)
		os.Exit(1)
	}
}

func run(input, output, pkg string) error {
	if input == "" {
		return fmt.Errorf("-input is required")
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	schemas, err := processor.Parse(data)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := processor.Generate(&buf, pkg, schemas); err != nil {
		return err
	}
	if output == "" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0o644)
}
