package costguard

import (
	"encoding/json"
	"fmt"
)

// explainNode mirrors the subset of Postgres's `EXPLAIN (FORMAT JSON)`
// output the estimator needs: the top-level plan node's row/width
// estimates, which are themselves derived from table statistics rather
// than an actual scan.
type explainNode struct {
	Plan struct {
		PlanRows  int64 `json:"Plan Rows"`
		PlanWidth int64 `json:"Plan Width"`
	} `json:"Plan"`
}

// parseExplainPlan extracts (estimated row count, estimated row width) from
// a Postgres EXPLAIN (FORMAT JSON) result, which is always a single-element
// JSON array.
func parseExplainPlan(planJSON string) (rows int64, width int64, err error) {
	var nodes []explainNode
	if err := json.Unmarshal([]byte(planJSON), &nodes); err != nil {
		return 0, 0, fmt.Errorf("parsing EXPLAIN output: %w", err)
	}
	if len(nodes) == 0 {
		return 0, 0, fmt.Errorf("EXPLAIN returned no plan nodes")
	}
	return nodes[0].Plan.PlanRows, nodes[0].Plan.PlanWidth, nil
}
