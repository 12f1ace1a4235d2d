package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

var (
	serverAddr = flag.String("server", "http://localhost:8080", "The server base URL")
	queryText  = flag.String("query", "", "Query in the text format, e.g. RATING_HISTOGRAM(productId: \"21\")")
	queryType  = flag.String("type", "", "The type of query to execute, used when -query is empty")
	params     = flag.String("params", "", "JSON-encoded parameters for the query")
	timeout    = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Parse()

	request := map[string]interface{}{}
	switch {
	case *queryText != "":
		request["query"] = *queryText
	case *queryType != "":
		parameters := make(map[string]string)
		if *params != "" {
			if err := json.Unmarshal([]byte(*params), &parameters); err != nil {
				log.Fatalf("Failed to parse parameters: %v", err)
			}
		}
		request["type"] = *queryType
		request["parameters"] = parameters
	default:
		log.Fatalf("Either -query or -type is required")
	}

	body, err := json.Marshal(request)
	if err != nil {
		log.Fatalf("Failed to encode request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *serverAddr+"/query", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		errorResponse := map[string]interface{}{
			"error":   err.Error(),
			"success": false,
		}
		respJson, _ := json.MarshalIndent(errorResponse, "", "  ")
		fmt.Println(string(respJson))
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
