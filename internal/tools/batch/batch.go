package batch

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID     int64  `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseIDOrArray parses a parameter that can be a single task id or an array
// of task ids. JSON numbers arrive as float64; string forms are accepted too.
func ParseIDOrArray(param interface{}, paramName string) ([]int64, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case float64:
		return []int64{int64(v)}, nil
	case string:
		id, err := parseID(v, paramName)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		ids := make([]int64, 0, len(v))
		for i, item := range v {
			switch id := item.(type) {
			case float64:
				ids = append(ids, int64(id))
			case string:
				parsed, err := parseID(id, fmt.Sprintf("%s[%d]", paramName, i))
				if err != nil {
					return nil, err
				}
				ids = append(ids, parsed)
			default:
				return nil, fmt.Errorf("%s[%d] must be a task id", paramName, i)
			}
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%s must be a task id or array of task ids", paramName)
	}
}

func parseID(s, paramName string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%s cannot be empty", paramName)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a numeric task id, got %q", paramName, s)
	}
	return id, nil
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result) string {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		if r.Status == "success" {
			br.Successful++
		} else {
			br.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(br, "", "  ")
	return string(jsonBytes)
}

// ProcessBatch executes a function on each task id and collects results.
// fn should return (result string, error) for each id.
func ProcessBatch(ids []int64, fn func(id int64) (string, error)) []Result {
	results := make([]Result, 0, len(ids))

	for _, id := range ids {
		result := Result{ID: id}
		res, err := fn(id)
		if err != nil {
			result.Status = "error"
			result.Error = err.Error()
		} else {
			result.Status = "success"
			result.Result = res
		}
		results = append(results, result)
	}

	return results
}
