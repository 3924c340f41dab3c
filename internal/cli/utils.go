// Package cli provides CLI output helpers for movierec.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/movierec/internal/models"
	"github.com/hyperjump/movierec/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const titleWidth = 60

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendations writes a recommendation response to w in the given format.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%d. %s (%.1f)\n", r.Rank, r.Title, r.VoteAverage)
		}
		return nil
	default:
		writeRecommendationsText(w, response)
		return nil
	}
}

func writeRecommendationsText(w io.Writer, response *models.RecommendResponse) {
	fmt.Fprintf(w, "\nRecommendations for '%s' (%d results in %dms)\n\n",
		response.Query, len(response.Results), response.QueryTime)
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Avg Vote: %.1f\n", r.Rank, r.VoteAverage)
		fmt.Fprintf(w, "Title: %s\n", utils.Truncate(r.Title, titleWidth))
		fmt.Fprintf(w, "Genre: %s\n", utils.JoinList(r.Genres, "-"))
		fmt.Fprintf(w, "Languages: %s\n", utils.JoinList(r.SpokenLanguages, "-"))
	}
	fmt.Fprintln(w)
}

// WriteTitles writes a list of titles, ranked from 1.
func WriteTitles(w io.Writer, titles []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string][]string{"titles": titles})
	}
	for i, t := range titles {
		if format == OutputCompact {
			fmt.Fprintln(w, t)
			continue
		}
		fmt.Fprintf(w, "%4d. %s\n", i+1, utils.Truncate(t, titleWidth))
	}
	return nil
}

// WriteSuggestions writes fuzzy title matches for query.
func WriteSuggestions(w io.Writer, query string, suggestions []models.TitleSuggestion, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]any{"query": query, "results": suggestions})
	case OutputCompact:
		for _, s := range suggestions {
			fmt.Fprintln(w, s.Title)
		}
		return nil
	default:
		if len(suggestions) == 0 {
			fmt.Fprintf(w, "No titles match '%s'\n", query)
			return nil
		}
		fmt.Fprintf(w, "Titles matching '%s':\n", query)
		for _, s := range suggestions {
			fmt.Fprintf(w, "  [%d] %s (score %.3f)\n", s.ID, utils.Truncate(s.Title, titleWidth), s.Score)
		}
		return nil
	}
}

// WriteStatus writes key/value status pairs in the order given by keys.
func WriteStatus(w io.Writer, status map[string]any, keys []string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	for _, k := range keys {
		v, ok := status[k]
		if !ok {
			continue
		}
		if format == OutputCompact {
			fmt.Fprintf(w, "%s=%v\n", k, v)
			continue
		}
		fmt.Fprintf(w, "%-18s %v\n", k+":", v)
	}
	return nil
}

// PrintRecommendations prints recommendations to stdout in text format.
func PrintRecommendations(response *models.RecommendResponse) {
	_ = WriteRecommendations(os.Stdout, response, OutputText)
}
