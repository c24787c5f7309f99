// Command textruns renders one PDF page and lists the text runs Tesseract
// finds on it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"pdf-touchup/internal/document"
	"pdf-touchup/internal/textrun"
)

func main() {
	inPath := flag.String("in", "", "Path to the PDF")
	page := flag.Int("page", 1, "Page number (1-based)")
	scale := flag.Float64("scale", 2, "Render scale")
	lang := flag.String("lang", "eng", "Tesseract language")
	timeout := flag.Duration("timeout", document.DefaultTimeout, "Render timeout")
	flag.Parse()

	if *inPath == "" {
		fmt.Println("Usage: textruns -in <file.pdf> [-page 1] [-scale 2] [-lang eng]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read PDF: %v\n", err)
		os.Exit(1)
	}

	r := document.NewRenderer(document.FitzOpener{})
	defer r.Close()
	info, err := r.Open(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open PDF: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Opened %s: %d pages\n", *inPath, info.PageCount)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	start := time.Now()
	raster, err := r.Render(ctx, *page, *scale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rendered page %d at %.2fx: %dx%d pixels in %v\n",
		raster.Page, raster.Scale, raster.Width, raster.Height, time.Since(start).Round(time.Millisecond))

	det, err := textrun.NewTesseractDetector(*lang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tesseract unavailable: %v\n", err)
		os.Exit(1)
	}
	defer det.Close()

	runs, err := det.Detect(raster.Image, raster.Scale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nDetected %d text runs:\n", len(runs))
	fmt.Printf("%8s %8s %8s %8s %6s %5s  %s\n", "X", "Y", "W", "H", "Size", "Conf", "Text")
	for _, run := range runs {
		b := run.Box
		fmt.Printf("%8.1f %8.1f %8.1f %8.1f %6.1f %5.0f  %s\n",
			b.X, b.Y, b.Width, b.Height, run.FontSize, run.Confidence, run.Text)
	}
}
