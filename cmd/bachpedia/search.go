package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/bachpedia/internal/search"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog from the terminal",
	Long: `Run a catalog search and print one page of results with facet counts.

The query is matched the same way as on the web search page:
  bachpedia search "BWV 1007"       exact catalog number first
  bachpedia search ich habe genug   title words
  bachpedia search 'cello -1008'    exclude a word
  bachpedia search --genre-id 3     browse a genre`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int64("genre-id", 0, "restrict to a genre")
	searchCmd.Flags().Int64("key-id", 0, "restrict to a key")
	searchCmd.Flags().Int64("instrument-id", 0, "restrict to an instrument")
	searchCmd.Flags().String("sort", string(search.SortRelevance), "relevance, bwv_asc, bwv_desc, title_asc or title_desc")
	searchCmd.Flags().Int("page", 1, "result page")
	searchCmd.Flags().Int("page-size", 0, "results per page (default search.page_size or 20)")
	searchCmd.Flags().String("ranker", "", "search ranker: sql or legacy (default sql)")
	searchCmd.Flags().Int("facets", 5, "facet values shown per facet (0 hides facets)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	applyRankerFlag(cmd)
	ranker, err := configuredRanker()
	if err != nil {
		return err
	}

	genreID, _ := cmd.Flags().GetInt64("genre-id")
	keyID, _ := cmd.Flags().GetInt64("key-id")
	instrumentID, _ := cmd.Flags().GetInt64("instrument-id")
	sortName, _ := cmd.Flags().GetString("sort")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	facetLimit, _ := cmd.Flags().GetInt("facets")
	if pageSize <= 0 {
		pageSize = GetConfigInt("search.page_size", search.DefaultPageSize)
	}

	p := search.Params{
		Query:        strings.Join(args, " "),
		GenreID:      genreID,
		KeyID:        keyID,
		InstrumentID: instrumentID,
		Sort:         search.ParseSort(sortName),
		Page:         page,
		PageSize:     pageSize,
	}

	db, err := openStore(nil)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := search.New(db.DB(), search.WithRanker(ranker))
	res, err := svc.Search(context.Background(), p)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResult(os.Stdout, res, util.GetTerminalWidth(), facetLimit)
	return nil
}

// printResult writes a result page as aligned text lines no wider than width
func printResult(w io.Writer, res *search.Result, width, facetLimit int) {
	fmt.Fprintf(w, "%s result(s) in %s (mode %s, ranker %s)\n",
		humanize.Comma(int64(res.Total)), res.Elapsed.Round(time.Microsecond), res.Mode, res.Ranker)
	if res.Capped {
		fmt.Fprintf(w, "Only the first %d results can be paged through with this ranker\n", search.MaxLegacyRows)
	}
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintln(w)

	labelWidth := 0
	for _, it := range res.Items {
		if n := len([]rune(it.BWVFull)); n > labelWidth {
			labelWidth = n
		}
	}
	if labelWidth < 3 {
		labelWidth = 3
	}

	for _, it := range res.Items {
		label := it.BWVFull
		if label == "" {
			label = "-"
		}
		line := fmt.Sprintf("%6d  %-*s  %s", it.ID, labelWidth, label, it.Title)
		var details []string
		for _, d := range []string{it.Genre, it.Key, it.DateComp} {
			if d != "" {
				details = append(details, d)
			}
		}
		if len(details) > 0 {
			line += "  [" + strings.Join(details, ", ") + "]"
		}
		fmt.Fprintln(w, util.FitWidth(line, width))
	}

	fmt.Fprintf(w, "\nPage %d of %d\n", res.Params.Page, res.Pages)

	if facetLimit <= 0 {
		return
	}
	for _, f := range []struct {
		title  string
		values []search.FacetValue
	}{
		{"Genres", res.Facets.Genres},
		{"Keys", res.Facets.Keys},
		{"Instruments", res.Facets.Instruments},
	} {
		if len(f.values) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", f.title)
		for i, v := range f.values {
			if i == facetLimit {
				fmt.Fprintf(w, "  ... %d more\n", len(f.values)-facetLimit)
				break
			}
			fmt.Fprintln(w, util.FitWidth(fmt.Sprintf("  %-4d %s (%d)", v.ID, v.Name, v.Count), width))
		}
	}
}
