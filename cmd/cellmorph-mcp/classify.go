package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/cellmorph-mcp/internal/cells"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// runClassify classifies one image and prints the sickle/normal ratio.
func runClassify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("cellmorph-mcp classify", stderr)
	configPath := fs.String("config", "", "configuration file (YAML)")
	output := fs.String("o", "", "write the annotated image to this PNG file")
	backend := fs.String("backend", "", "contour backend: native or opencv (overrides config)")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: cellmorph-mcp classify [-o out.png] [--backend native|opencv] [--json] image")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	if *backend != "" {
		cfg.Backend = *backend
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	}

	classifier, _, closer, err := setup(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer closer.Close()

	result, err := classifier.ClassifyFile(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if *output != "" {
		if err := imgio.Save(*output, result.Annotated, imgio.PNGEncoder()); err != nil {
			fmt.Fprintf(stderr, "Error: failed to save annotated image: %v\n", err)
			return exitError
		}
	}

	ratio, ratioErr := result.Ratio()
	if *asJSON {
		if err := writeJSON(stdout, result, ratio, ratioErr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	} else {
		fmt.Fprintf(stdout, "Cells measured: %d (sickle %d, normal %d, boundary %d)\n",
			len(result.Cells), result.Sickle, result.Normal, result.Boundary)
		if ratioErr == nil {
			fmt.Fprintf(stdout, "Sickle/normal ratio: %.2f\n", ratio)
		} else {
			fmt.Fprintf(stdout, "Sickle/normal ratio: undefined (%v)\n", ratioErr)
		}
		if *output != "" {
			fmt.Fprintf(stdout, "Annotated image: %s\n", *output)
		}
	}

	switch {
	case ratioErr == nil:
		return exitOK
	case errors.Is(ratioErr, cells.ErrNoContoursFound), errors.Is(ratioErr, cells.ErrNoNormalCells):
		return exitUndefined
	default:
		return exitError
	}
}

type classifyOutput struct {
	*cells.Result
	Status cells.Status `json:"status"`
	Ratio  *float64     `json:"ratio"`
}

func writeJSON(w io.Writer, result *cells.Result, ratio float64, ratioErr error) error {
	out := classifyOutput{Result: result, Status: result.Status()}
	if ratioErr == nil {
		out.Ratio = &ratio
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
