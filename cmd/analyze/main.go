// Command analyze loads the co-purchase dataset and prints the answers to
// the three questions: the rating histogram of one product, the pairs that
// stay mutually linked across all four snapshots, and the first product of a
// different group reachable from chosen start products.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"git.canoozie.net/riddling/copurchase/pkg/config"
	"git.canoozie.net/riddling/copurchase/pkg/dataset"
	"git.canoozie.net/riddling/copurchase/pkg/model"
	"git.canoozie.net/riddling/copurchase/pkg/query"
)

// titleSearch is one divergent path search; a zero depth uses -max-depth
type titleSearch struct {
	title string
	depth int
}

var (
	configPath = flag.String("config", "", "Path to a YAML configuration file")
	productID  = flag.Uint64("product", 21, "Product id for the rating histogram")
	snapshot   = flag.String("snapshot", model.SnapshotJune, "Snapshot searched for divergent paths")
	maxDepth   = flag.Int("max-depth", 0, "Depth limit of the divergent path search (0 uses the configured max_depth)")
	showPairs  = flag.Int("pairs", 20, "Number of consistent pairs to list")
	searches   []titleSearch
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	flag.Func("title", "Exact title of a start product (repeatable)", func(v string) error {
		searches = append(searches, titleSearch{title: v})
		return nil
	})
	flag.Func("title-depth", "Depth limit of the search started by the preceding -title", func(v string) error {
		if len(searches) == 0 {
			return errors.New("-title-depth must follow a -title")
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return fmt.Errorf("depth must be a positive integer, got %q", v)
		}
		searches[len(searches)-1].depth = n
		return nil
	})
	flag.Parse()

	if len(searches) == 0 {
		searches = []titleSearch{
			{title: "The Casebook of Sherlock Holmes, Volume 2 (Casebook of Sherlock Holmes)", depth: 3},
			{title: "Life Application Bible Commentary: 1 and 2 Timothy and Titus", depth: 5},
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *maxDepth <= 0 {
		*maxDepth = cfg.MaxDepth
	}

	logger := model.NewDefaultLogger(cfg.Level())
	model.SetDefaultLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, productTable, err := dataset.FromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open product table: %v", err)
	}
	defer productTable.Close()

	ds, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	engine := ds.Engine(logger, cfg.MaxDepth)

	if err := printHistogram(ctx, engine, *productID); err != nil {
		log.Fatalf("Rating histogram failed: %v", err)
	}
	if err := printPairs(ctx, engine, *showPairs); err != nil {
		log.Fatalf("Consistent pairs failed: %v", err)
	}
	for _, s := range searches {
		depth := s.depth
		if depth == 0 {
			depth = *maxDepth
		}
		if err := printDivergentPath(ctx, engine, s.title, depth, *snapshot); err != nil {
			log.Fatalf("Divergent path failed: %v", err)
		}
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func printHistogram(ctx context.Context, engine *query.Engine, id uint64) error {
	res, err := engine.RatingHistogram(ctx, id)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Rating shares of product %d", id)))
	if len(res.Histogram) == 0 {
		fmt.Println(mutedStyle.Render("no rated reviews"))
		return nil
	}

	t := newTable("rating", "reviews", "share")
	for _, s := range res.Histogram {
		t.Row(strconv.Itoa(s.Rating), strconv.Itoa(s.Count), fmt.Sprintf("%.2f%%", s.Percentage))
	}
	fmt.Println(t)
	return nil
}

func printPairs(ctx context.Context, engine *query.Engine, limit int) error {
	res, err := engine.ConsistentPairs(ctx)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d pairs co-purchased both ways in all four snapshots", len(res.Pairs))))
	if len(res.Pairs) == 0 {
		return nil
	}

	t := newTable("product", "product")
	for i, p := range res.Pairs {
		if i == limit {
			break
		}
		t.Row(strconv.FormatUint(p.U, 10), strconv.FormatUint(p.V, 10))
	}
	fmt.Println(t)
	if len(res.Pairs) > limit {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("... %d more", len(res.Pairs)-limit)))
	}
	return nil
}

func printDivergentPath(ctx context.Context, engine *query.Engine, title string, depth int, snapshotName string) error {
	res, err := engine.DivergentPathByTitle(ctx, title, depth, snapshotName)
	if err != nil {
		return err
	}
	path := res.Path

	fmt.Println(titleStyle.Render(fmt.Sprintf("First different group from %q (%s)", title, snapshotName)))
	switch {
	case !path.StartKnown:
		fmt.Println(mutedStyle.Render("no product with this title"))
		return nil
	case !path.Found:
		fmt.Println(mutedStyle.Render(fmt.Sprintf("no product outside group %q within %d levels", path.StartGroup, path.MaxDepth)))
		return nil
	}

	t := newTable("level", "id", "group", "title")
	for _, s := range path.Steps {
		t.Row(strconv.Itoa(s.Depth), strconv.FormatUint(s.ID, 10), s.Group, s.Title)
	}
	fmt.Println(t)
	fmt.Printf("found at level %d\n", path.Length())
	return nil
}
