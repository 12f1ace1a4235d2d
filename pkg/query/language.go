package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// QueryType represents the different types of queries supported
type QueryType string

const (
	QueryTypeRatingHistogram QueryType = "RATING_HISTOGRAM"
	QueryTypeConsistentPairs QueryType = "CONSISTENT_PAIRS"
	QueryTypeDivergentPath   QueryType = "DIVERGENT_PATH"
	QueryTypeProduct         QueryType = "PRODUCT"
	QueryTypeFindNeighbors   QueryType = "FIND_NEIGHBORS"
)

// Query represents a parsed query
type Query struct {
	Type       QueryType         `json:"type"`
	Parameters map[string]string `json:"parameters"`
}

// Parameter keys
const (
	ParamProductID  = "productId"
	ParamStartID    = "startId"
	ParamStartTitle = "startTitle"
	ParamMaxDepth   = "maxDepth"
	ParamSnapshot   = "snapshot"
	ParamDirection  = "direction"
	ParamAlgorithm  = "algorithm"
)

// Direction types for traversal
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
	DirectionBoth     = "both"
)

// ErrInvalidQuery indicates that the query is invalid
var ErrInvalidQuery = errors.New("invalid query")

// Parse parses a query string into a Query struct
// The query language is a simple string format:
// RATING_HISTOGRAM(productId: "21")
// CONSISTENT_PAIRS()
// DIVERGENT_PATH(startId: "24", maxDepth: "3")
// DIVERGENT_PATH(startTitle: "Sunrise", maxDepth: "5", snapshot: "june")
// PRODUCT(productId: "21")
// FIND_NEIGHBORS(productId: "21", direction: "outgoing", maxDepth: "2")
// FIND_NEIGHBORS(productId: "21", algorithm: "DFS")
func Parse(queryStr string) (*Query, error) {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	if strings.HasPrefix(queryStr, "{") {
		var query Query
		if err := json.Unmarshal([]byte(queryStr), &query); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON: %v", ErrInvalidQuery, err)
		}
		if query.Parameters == nil {
			query.Parameters = make(map[string]string)
		}
		if err := validateQueryParameters(&query); err != nil {
			return nil, err
		}
		return &query, nil
	}

	openParenIndex := strings.Index(queryStr, "(")
	if openParenIndex == -1 {
		return nil, fmt.Errorf("%w: missing parameters", ErrInvalidQuery)
	}

	closeParenIndex := strings.LastIndex(queryStr, ")")
	if closeParenIndex == -1 || closeParenIndex <= openParenIndex {
		return nil, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidQuery)
	}
	if rest := strings.TrimSpace(queryStr[closeParenIndex+1:]); rest != "" {
		return nil, fmt.Errorf("%w: unexpected text after query: %s", ErrInvalidQuery, rest)
	}

	query := &Query{
		Type:       QueryType(strings.TrimSpace(queryStr[:openParenIndex])),
		Parameters: make(map[string]string),
	}

	params, err := parseParameters(queryStr[openParenIndex+1 : closeParenIndex])
	if err != nil {
		return nil, err
	}
	query.Parameters = params

	if err := validateQueryParameters(query); err != nil {
		return nil, err
	}
	return query, nil
}

// parseParameters splits `key: "value", key: value` lists. Quoted values may
// contain commas, colons and \" escapes, since product titles often do.
func parseParameters(s string) (map[string]string, error) {
	params := make(map[string]string)
	rest := strings.TrimSpace(s)

	for rest != "" {
		colon := strings.Index(rest, ":")
		if colon == -1 {
			return nil, fmt.Errorf("%w: invalid parameter format: %s", ErrInvalidQuery, rest)
		}
		key := strings.TrimSpace(rest[:colon])
		if key == "" {
			return nil, fmt.Errorf("%w: empty parameter name", ErrInvalidQuery)
		}
		rest = strings.TrimSpace(rest[colon+1:])

		var value string
		if strings.HasPrefix(rest, `"`) {
			var sb strings.Builder
			i := 1
			closed := false
			for ; i < len(rest); i++ {
				c := rest[i]
				if c == '\\' && i+1 < len(rest) {
					i++
					sb.WriteByte(rest[i])
					continue
				}
				if c == '"' {
					closed = true
					break
				}
				sb.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated string for parameter '%s'", ErrInvalidQuery, key)
			}
			value = sb.String()
			rest = strings.TrimSpace(rest[i+1:])
		} else {
			end := strings.Index(rest, ",")
			if end == -1 {
				end = len(rest)
			}
			value = strings.TrimSpace(rest[:end])
			rest = rest[end:]
		}

		params[key] = value

		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, ",") {
			return nil, fmt.Errorf("%w: expected ',' after parameter '%s'", ErrInvalidQuery, key)
		}
		rest = strings.TrimSpace(rest[1:])
	}
	return params, nil
}

// validateQueryParameters validates that the query has all required parameters
func validateQueryParameters(query *Query) error {
	switch query.Type {
	case QueryTypeRatingHistogram, QueryTypeProduct:
		if _, ok := query.Parameters[ParamProductID]; !ok {
			return fmt.Errorf("%w: missing required parameter 'productId'", ErrInvalidQuery)
		}
	case QueryTypeConsistentPairs:
		// No parameters
	case QueryTypeDivergentPath:
		_, byID := query.Parameters[ParamStartID]
		_, byTitle := query.Parameters[ParamStartTitle]
		if byID == byTitle {
			return fmt.Errorf("%w: exactly one of 'startId' or 'startTitle' is required", ErrInvalidQuery)
		}
	case QueryTypeFindNeighbors:
		if _, ok := query.Parameters[ParamProductID]; !ok {
			return fmt.Errorf("%w: missing required parameter 'productId'", ErrInvalidQuery)
		}
		if dir, ok := query.Parameters[ParamDirection]; ok {
			if dir != DirectionOutgoing && dir != DirectionIncoming && dir != DirectionBoth {
				return fmt.Errorf("%w: invalid direction parameter, must be 'outgoing', 'incoming', or 'both'", ErrInvalidQuery)
			}
		}
		if alg, ok := query.Parameters[ParamAlgorithm]; ok {
			switch TraversalType(strings.ToUpper(strings.TrimSpace(alg))) {
			case TraversalTypeBFS, TraversalTypeDFS:
			default:
				return fmt.Errorf("%w: invalid algorithm parameter %q, must be 'BFS' or 'DFS'", ErrInvalidQuery, alg)
			}
		}
	default:
		return fmt.Errorf("%w: unknown query type: %s", ErrInvalidQuery, query.Type)
	}
	return nil
}

// String renders the query in the text format, parameters sorted by name
func (q *Query) String() string {
	keys := make([]string, 0, len(q.Parameters))
	for k := range q.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(string(q.Type))
	sb.WriteString("(")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": \"")
		sb.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(q.Parameters[k]))
		sb.WriteString("\"")
	}
	sb.WriteString(")")
	return sb.String()
}
