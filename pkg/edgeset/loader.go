// Package edgeset reads the tab separated co-purchase edge lists
package edgeset

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"git.canoozie.net/riddling/copurchase/pkg/common"
	"git.canoozie.net/riddling/copurchase/pkg/model"
)

// CommentMarker starts a comment line in an edge list
const CommentMarker = "#"

// checkInterval is how many lines are read between context checks
const checkInterval = 4096

// maxLineSize bounds one edge line
const maxLineSize = 1024 * 1024

// Stats summarises one edge list load
type Stats struct {
	Lines    int // Non-empty lines read
	Edges    int // Edges kept
	Comments int // Comment lines skipped
	Skipped  int // Malformed lines skipped
}

// Load reads a "FromNodeId<TAB>ToNodeId" edge list into a snapshot.
//
// Comment lines are skipped, as is every line that does not hold exactly two
// integer fields. Only errors of the underlying reader abort the load.
func Load(ctx context.Context, name string, r io.Reader, logger model.Logger) (*model.Snapshot, Stats, error) {
	if logger == nil {
		logger = model.DefaultLoggerInstance
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	snapshot := model.NewSnapshot(name)
	var stats Stats
	line := 0

	for scanner.Scan() {
		if line%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		line++

		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		stats.Lines++

		if strings.HasPrefix(strings.TrimSpace(text), CommentMarker) {
			stats.Comments++
			continue
		}

		source, target, err := parseEdge(strings.Split(text, "\t"), line)
		if err != nil {
			stats.Skipped++
			logger.Debug("Skipping edge line in %s: %v", name, err)
			continue
		}

		snapshot.AddEdge(source, target)
		stats.Edges++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("reading edge list %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	logger.Info("Loaded %d edges into snapshot %s (%d comments, %d skipped)",
		stats.Edges, name, stats.Comments, stats.Skipped)
	return snapshot, stats, nil
}

func parseEdge(record []string, line int) (uint64, uint64, error) {
	if len(record) != 2 {
		return 0, 0, model.ErrMalformedEdgeLine{
			Line:   line,
			Text:   strings.Join(record, "\t"),
			Reason: fmt.Sprintf("expected 2 fields, got %d", len(record)),
		}
	}

	source, err := common.ParseUint64(record[0])
	if err != nil {
		return 0, 0, model.ErrMalformedEdgeLine{Line: line, Text: strings.Join(record, "\t"), Reason: "source is not an integer"}
	}
	target, err := common.ParseUint64(record[1])
	if err != nil {
		return 0, 0, model.ErrMalformedEdgeLine{Line: line, Text: strings.Join(record, "\t"), Reason: "target is not an integer"}
	}
	return source, target, nil
}
