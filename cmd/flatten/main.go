// Command flatten burns a JSON list of elements into a PDF without the UI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"pdf-touchup/internal/element"
	"pdf-touchup/internal/flatten"
)

func main() {
	inPath := flag.String("in", "", "Path to the source PDF")
	elemPath := flag.String("elements", "", "Path to a JSON array of elements")
	outPath := flag.String("out", "", "Path to write the flattened PDF")
	flag.Parse()

	if *inPath == "" || *elemPath == "" || *outPath == "" {
		fmt.Println("Usage: flatten -in <source.pdf> -elements <elements.json> -out <output.pdf>")
		os.Exit(1)
	}

	src, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read source: %v\n", err)
		os.Exit(1)
	}

	els, err := readElements(*elemPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read elements: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d elements on %d pages\n", len(els), countPages(els))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := flatten.NewPipeline(flatten.PDFLoader{}, nil).Save(ctx, src, els)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flattening failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*outPath, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", *outPath, len(out))
}

// readElements decodes the element list, giving elements without an id a
// fresh one.
func readElements(path string) ([]element.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var els []element.Element
	if err := json.Unmarshal(data, &els); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range els {
		if els[i].ID == "" {
			els[i].ID = element.NewID()
		}
	}
	return els, nil
}

func countPages(els []element.Element) int {
	pages := make(map[int]bool)
	for _, el := range els {
		pages[el.Page] = true
	}
	return len(pages)
}
