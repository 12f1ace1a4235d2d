package query

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		queryStr    string
		wantType    QueryType
		wantParams  map[string]string
		wantErr     bool
		wantErrText string
	}{
		{
			name:       "Rating histogram",
			queryStr:   `RATING_HISTOGRAM(productId: "21")`,
			wantType:   QueryTypeRatingHistogram,
			wantParams: map[string]string{"productId": "21"},
		},
		{
			name:       "Consistent pairs",
			queryStr:   `CONSISTENT_PAIRS()`,
			wantType:   QueryTypeConsistentPairs,
			wantParams: map[string]string{},
		},
		{
			name:     "Divergent path by id",
			queryStr: `DIVERGENT_PATH(startId: "24", maxDepth: "3", snapshot: "june")`,
			wantType: QueryTypeDivergentPath,
			wantParams: map[string]string{
				"startId":  "24",
				"maxDepth": "3",
				"snapshot": "june",
			},
		},
		{
			name:     "Divergent path by title with punctuation",
			queryStr: `DIVERGENT_PATH(startTitle: "Sunrise: A Song, of \"Two\" Humans")`,
			wantType: QueryTypeDivergentPath,
			wantParams: map[string]string{
				"startTitle": `Sunrise: A Song, of "Two" Humans`,
			},
		},
		{
			name:       "Product with unquoted value",
			queryStr:   `  PRODUCT(productId: 21)  `,
			wantType:   QueryTypeProduct,
			wantParams: map[string]string{"productId": "21"},
		},
		{
			name:     "Find neighbors",
			queryStr: `FIND_NEIGHBORS(productId: "1", direction: "incoming", maxDepth: "2")`,
			wantType: QueryTypeFindNeighbors,
			wantParams: map[string]string{
				"productId": "1",
				"direction": "incoming",
				"maxDepth":  "2",
			},
		},
		{
			name:       "JSON format",
			queryStr:   `{"type": "RATING_HISTOGRAM", "parameters": {"productId": "7"}}`,
			wantType:   QueryTypeRatingHistogram,
			wantParams: map[string]string{"productId": "7"},
		},
		{
			name:       "JSON without parameters",
			queryStr:   `{"type": "CONSISTENT_PAIRS"}`,
			wantType:   QueryTypeConsistentPairs,
			wantParams: map[string]string{},
		},
		{
			name:        "Empty query",
			queryStr:    "   ",
			wantErr:     true,
			wantErrText: "empty query",
		},
		{
			name:        "Missing parameters",
			queryStr:    "CONSISTENT_PAIRS",
			wantErr:     true,
			wantErrText: "missing parameters",
		},
		{
			name:        "Missing closing parenthesis",
			queryStr:    `PRODUCT(productId: "1"`,
			wantErr:     true,
			wantErrText: "missing closing parenthesis",
		},
		{
			name:        "Unknown type",
			queryStr:    `FIND_NODES_BY_LABEL(label: "Person")`,
			wantErr:     true,
			wantErrText: "unknown query type",
		},
		{
			name:        "Missing product id",
			queryStr:    `RATING_HISTOGRAM()`,
			wantErr:     true,
			wantErrText: "productId",
		},
		{
			name:        "Both start id and title",
			queryStr:    `DIVERGENT_PATH(startId: "1", startTitle: "Alpha")`,
			wantErr:     true,
			wantErrText: "exactly one",
		},
		{
			name:        "No start",
			queryStr:    `DIVERGENT_PATH(maxDepth: "2")`,
			wantErr:     true,
			wantErrText: "exactly one",
		},
		{
			name:        "Invalid direction",
			queryStr:    `FIND_NEIGHBORS(productId: "1", direction: "sideways")`,
			wantErr:     true,
			wantErrText: "invalid direction",
		},
		{
			name:        "Invalid algorithm",
			queryStr:    `FIND_NEIGHBORS(productId: "1", algorithm: "random")`,
			wantErr:     true,
			wantErrText: "invalid algorithm",
		},
		{
			name:        "Invalid parameter format",
			queryStr:    `PRODUCT(productId)`,
			wantErr:     true,
			wantErrText: "invalid parameter format",
		},
		{
			name:        "Unterminated string",
			queryStr:    `PRODUCT(productId: "1)`,
			wantErr:     true,
			wantErrText: "unterminated",
		},
		{
			name:        "Invalid JSON",
			queryStr:    `{"type": `,
			wantErr:     true,
			wantErrText: "invalid JSON",
		},
		{
			name:        "JSON is validated",
			queryStr:    `{"type": "PRODUCT", "parameters": {}}`,
			wantErr:     true,
			wantErrText: "productId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.queryStr)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse() expected error, got %+v", got)
				}
				if !errors.Is(err, ErrInvalidQuery) {
					t.Errorf("Parse() error = %v, want ErrInvalidQuery", err)
				}
				if !strings.Contains(err.Error(), tt.wantErrText) {
					t.Errorf("Parse() error = %q, want it to contain %q", err, tt.wantErrText)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got.Type != tt.wantType {
				t.Errorf("Parse() type = %v, want %v", got.Type, tt.wantType)
			}
			if !reflect.DeepEqual(got.Parameters, tt.wantParams) {
				t.Errorf("Parse() params = %v, want %v", got.Parameters, tt.wantParams)
			}
		})
	}
}

func TestQueryString(t *testing.T) {
	q := &Query{
		Type: QueryTypeDivergentPath,
		Parameters: map[string]string{
			ParamStartTitle: `Say "hi"`,
			ParamMaxDepth:   "2",
		},
	}

	s := q.String()
	want := `DIVERGENT_PATH(maxDepth: "2", startTitle: "Say \"hi\"")`
	if s != want {
		t.Errorf("String() = %s, want %s", s, want)
	}

	parsed, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(String()) error = %v", err)
	}
	if !reflect.DeepEqual(parsed, q) {
		t.Errorf("Parse(String()) = %+v, want %+v", parsed, q)
	}
}
