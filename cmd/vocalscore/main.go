/*
vocalscore is a thin demo CLI around the scoring pipeline: it reads two
Feature JSON files (user, then reference) and prints the resulting Report
as JSON.
*/
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/choirmind/vocalcore/internal/feature"
	"github.com/choirmind/vocalcore/internal/score"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <user.json> <ref.json>\n", os.Args[0])
		os.Exit(1)
	}

	user, err := loadFeature(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	ref, err := loadFeature(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}

	report, err := score.Score(user, ref)
	if err != nil {
		log.Fatal(err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}

func loadFeature(path string) (feature.Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return feature.Feature{}, err
	}
	var f feature.Feature
	if err := json.Unmarshal(data, &f); err != nil {
		return feature.Feature{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
