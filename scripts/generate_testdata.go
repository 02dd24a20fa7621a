//go:build ignore

// generate_testdata.go creates standard family datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/small.json   (~100 people, 5 generations)
//	tests/testdata/benchmark/medium.json  (~1000 people, 7 generations)
//	tests/testdata/benchmark/large.json   (~10000 people, 9 generations)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/familytree/pkg/testutil"
)

type datasetSpec struct {
	name        string
	generations int
	roots       int
	maxChildren int
}

var datasets = []datasetSpec{
	{"small", 5, 3, 3},
	{"medium", 7, 4, 4},
	{"large", 9, 6, 4},
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d generations)...\n", ds.name, ds.generations)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:        int64(100 + i), // Reproducible per-size
			Generations: ds.generations,
			Roots:       ds.roots,
			MaxChildren: ds.maxChildren,
			IDPrefix:    "B",
			StartYear:   1700,
			InfoRate:    0.4,
			DeathRate:   0.8,
			MissingID:   0.01,
			Dangling:    0.01,
		})
		data := gen.Family()

		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d people)\n", outputPath, len(out), data.PersonCount())
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}
