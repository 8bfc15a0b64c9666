package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/geo3d/internal/feature"
	"github.com/woozymasta/geo3d/internal/geofile"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Input  string `short:"i" long:"in"     description:"Input GeoJSON file path. Reads from stdin if empty"`
	Output string `short:"o" long:"out"    description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Field  string `short:"t" long:"field"  description:"Attribute holding the packed tags" default:"other_tags"`
	Schema bool   `short:"s" long:"schema" description:"Print the expanded column list only"`
}

// record is one feature with its expanded attributes.
type record struct {
	ID         string             `json:"id" yaml:"id"`
	Attributes feature.Attributes `json:"attributes" yaml:"attributes"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	c, err := geofile.Decode(inputData, "input")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing GeoJSON: %v\n", err)
		os.Exit(1)
	}
	c.ExpandTags(opts.Field)

	var out any = c.Columns
	if !opts.Schema {
		records := make([]record, 0, c.Len())
		for _, f := range c.Features {
			records = append(records, record{ID: f.ID, Attributes: f.Attributes})
		}
		out = records
	}

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(out)
	} else {
		outputData, err = json.MarshalIndent(out, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully expanded %d features into %d columns to %s (format: %s)\n",
			c.Len(), len(c.Columns), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
